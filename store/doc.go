// Package store persists experiment observations under a "home" directory.
//
// A home is a single version of an experiment: it is labelled by a
// .labbook file recording the backend name and the code fingerprint the
// observations were produced with, and it contains the backend's native
// files plus a runs/ directory holding one scratch directory per execution:
//
//	<home>
//	├── .labbook
//	├── observations.<ext>   (or observations/<id>.<ext>)
//	└── runs
//	    ├── <run-id>
//	    │   └── <artefacts>
//	    └── ...
//
// # Backends
//
// Four encodings are registered out of the box:
//
//   - yaml: multi-document YAML file, appended to on every save
//   - csv: single table, nested keys flattened with "|"
//   - json: one JSON file per observation
//   - msgpack: one zstd-compressed MessagePack file per observation
//
// Additional encodings are added with Register.
//
// # Concurrency
//
// Backends whose state is a single shared file serialise every
// read-modify-write cycle through WithExclusiveAccess, an advisory lock on a
// sibling ".lock" file which is removed once released. Per-observation
// backends write one file per id and only race on directory creation.
package store
