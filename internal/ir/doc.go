// Package ir provides the literal value types shared by every stage of the
// graph query compiler.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps literals the foundational
// layer with no circular dependencies between parsers, the query IR and the
// backend renderers.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64 (IRInt)
//   - IRValue is sealed; only the variants declared here implement it
//   - Every string literal is NFC normalized before it reaches a renderer
//   - Canonical JSON (RFC 8785) is the only serialization used for
//     fingerprints and golden snapshots
package ir
