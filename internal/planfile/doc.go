// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package planfile loads query plans from disk into their in-memory form.
//
// Why two formats?
//
// HCL is the format plans are written in by hand. It tolerates comments,
// trailing commas and multi-line strings, which matters when a person is
// sketching out a research plan and revising it as they go. JSON is the
// format other programs emit: a planner service or a script that generates
// plans has no use for HCL's ergonomics and every use for a schema it can
// validate against before handing the file over.
//
// Both front ends converge on the same []plan.Node. Everything downstream
// of loading is format-agnostic, so adding a third format later means
// adding one file to this package and nothing anywhere else.
package planfile
