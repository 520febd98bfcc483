// Package bridgeruntime lets Go programs call functions, construct
// objects, and stream results from a library implemented in a foreign
// runtime, without hand-writing per-call glue code.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	bridgeruntime/       Root package wiring the client and session manager
//	├── schema/          Normalized library schema from introspection or manifests
//	├── typemap/         Pure mapping from schema types to Go type annotations
//	├── gen/             Binding generator with hash-compared atomic writes
//	├── runtime/         Call dispatch, streaming, and result classification
//	├── session/         Session lifecycle and foreign object ownership
//	├── codec/           Wire-safe value encoding with marker types
//	└── errors/          Structured error types for every phase
//
// # Quick Start
//
// Wire a bridge around a transport and call into the foreign side:
//
//	bridge, err := bridgeruntime.New(transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Close(ctx)
//
//	result, err := bridge.Client().Call(ctx, "numpy", "mean",
//	    []any{[]float64{1, 2, 3}}, nil)
//
// Generated bindings offer the same calls with static signatures:
//
//	np := bindings.NewNumpy(bridge.Client())
//	mean, err := np.Mean(ctx, []float64{1, 2, 3}, nil)
//
// # Sessions and Object References
//
// Foreign objects never cross the process boundary; they come back as
// references owned by a session. Explicit sessions are created and
// released by the caller; calls without one get an auto session scoped
// to their context:
//
//	ctx = session.WithScope(ctx)
//	w, err := pkg.NewWidget(ctx, 10, 20, nil)
//
// Releasing a session releases every object it owns on the foreign
// side.
//
// # Generation
//
// Schemas normalize from live introspection JSON or curated YAML
// manifests, then render to Go source:
//
//	lib, err := schema.FromIntrospection(introspectionJSON)
//	out, err := gen.Generate(lib, gen.Config{Package: "bindings"})
//	report, err := gen.Write(out.Artifacts, "bindings")
//
// Regeneration from an unchanged schema performs zero writes.
package bridgeruntime
