// Package tracking is the artifact-store client used by pipeline steps.
//
// A step starts a Run, records its configuration, resolves input artifact
// references to local files (recording lineage as it goes) and publishes new
// artifact versions. Metadata lives in the registry; payloads live in a blob
// store.
//
// References have the form [project/]name[:version], where version is
// "latest" (the default), "vN" or another alias.
package tracking
