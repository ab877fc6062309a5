// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package malloc implements a general-purpose dynamic memory allocator
// that can stand in for the platform heap allocator.
//
// It services variable-size allocation requests from application code,
// returning aligned pointers into a privately owned heap region, and
// reclaims them on demand. Three placement strategies coexist — first-fit,
// next-fit and best-fit — selectable per call. Allocations may be
// zero-initialized (Calloc), resized in place when possible (Realloc), or
// freed explicitly (Free). An optional background task performs
// conservative mark-and-sweep collection of blocks the application has
// dropped without freeing.
//
// One global mutex protects an Allocator; the package does not attempt
// per-thread caches, lock-free fast paths or compaction, and it never
// returns heap pages to the OS except at the single heap tail. Large
// requests (see Config.MMapThreshold) bypass the heap and are served by
// anonymous page mappings instead.
package malloc
