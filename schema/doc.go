// Package schema defines the normalized description of a foreign library's
// callable surface: type descriptors, parameter classification, function and
// class descriptors, and the library tree itself.
//
// Two sources normalize into this one shape so the generator has a single
// input contract: live introspection output (JSON produced by the foreign
// introspector) via FromIntrospection, and hand-curated manifests (YAML)
// via FromManifest.
package schema
