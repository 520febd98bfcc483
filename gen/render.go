package gen

import (
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/wippyai/bridge-runtime/schema"
	"github.com/wippyai/bridge-runtime/typemap"
)

// Import paths baked into generated bindings.
const (
	runtimePkg = "github.com/wippyai/bridge-runtime/runtime"
	codecPkg   = "github.com/wippyai/bridge-runtime/codec"
)

const headerComment = "Code generated by bridge-runtime. DO NOT EDIT."

type renderer struct {
	cfg   Config
	types *namer
	diags []Diagnostic
}

func (r *renderer) diag(path, message string) {
	r.diags = append(r.diags, Diagnostic{Path: path, Message: message})
}

// renderLibrary renders one library level into one source artifact.
// Submodules get their own artifacts; this level only emits accessor
// methods for them.
func (r *renderer) renderLibrary(lib *schema.Library, structName string, root bool, subNames map[string]string) (Artifact, error) {
	f := jen.NewFile(r.cfg.Package)
	f.HeaderComment(headerComment)

	f.Commentf("%s exposes the foreign %s module.", structName, lib.Name)
	f.Type().Id(structName).Struct(
		jen.Id("client").Op("*").Qual(runtimePkg, "Client"),
	)
	f.Line()

	if root {
		f.Commentf("New%s binds the %s module to a runtime client.", structName, lib.Name)
		f.Func().Id("New" + structName).Params(
			jen.Id("client").Op("*").Qual(runtimePkg, "Client"),
		).Op("*").Id(structName).Block(
			jen.Return(jen.Op("&").Id(structName).Values(jen.Dict{
				jen.Id("client"): jen.Id("client"),
			})),
		)
		f.Line()
	}

	methods := newNamer()
	methods.claim(structName)

	for i := range lib.Submodules {
		sub := &lib.Submodules[i]
		subStruct := subNames[sub.Name]
		accessor, dup := methods.claim(exportName(sub.Name))
		if dup {
			r.diag(sub.Name, "submodule accessor renamed to "+accessor)
		}
		f.Commentf("%s enters the %s submodule.", accessor, sub.Name)
		f.Func().Params(jen.Id("m").Op("*").Id(structName)).Id(accessor).Params().Op("*").Id(subStruct).Block(
			jen.Return(jen.Op("&").Id(subStruct).Values(jen.Dict{
				jen.Id("client"): jen.Id("m").Dot("client"),
			})),
		)
		f.Line()
	}

	for i := range lib.Functions {
		r.renderFunction(f, structName, &lib.Functions[i], methods)
	}
	for i := range lib.Classes {
		r.renderClass(f, structName, &lib.Classes[i], methods)
	}

	source := []byte(f.GoString())
	return newArtifact(artifactName(structName), source), nil
}

func artifactName(structName string) string {
	return strings.ToLower(structName) + ".bridge.go"
}

// renderFunction emits one module-level binding, or a pair of
// bindings when the descriptor is flagged streaming. The binding name
// derives from the fully-qualified foreign path's structure, so
// identically named functions in different submodules never collide:
// each submodule renders into its own struct.
func (r *renderer) renderFunction(f *jen.File, structName string, fn *schema.Function, methods *namer) {
	target, name := splitPath(fn.Path)
	goName, dup := methods.claim(exportName(fn.Name))
	if dup {
		r.diag(fn.Path, "binding renamed to "+goName)
	}

	recv := func() *jen.Statement { return jen.Id("m").Op("*").Id(structName) }
	params, argsExpr := bindingParams(fn.RequiredParams())

	if fn.Streaming {
		f.Commentf("%s opens a stream from %s.", goName, fn.Path)
		f.Func().Params(recv()).Id(goName).Params(params...).Params(
			jen.Op("*").Qual(runtimePkg, "Stream"), jen.Error(),
		).Block(
			jen.Return(jen.Id("m").Dot("client").Dot("Stream").Call(
				jen.Id("ctx"), jen.Lit(target), jen.Lit(name), argsExpr, jen.Id("opts"),
			)),
		)
		f.Line()

		eachName, dup := methods.claim(goName + "Each")
		if dup {
			r.diag(fn.Path, "callback binding renamed to "+eachName)
		}
		eachParams := append(append([]jen.Code{}, params...),
			jen.Id("fn").Func().Params(jen.Any()).Error())
		f.Commentf("%s streams %s through a per-chunk callback.", eachName, fn.Path)
		f.Func().Params(jen.Id("m").Op("*").Id(structName)).Id(eachName).Params(eachParams...).Error().Block(
			jen.Return(jen.Id("m").Dot("client").Dot("Each").Call(
				jen.Id("ctx"), jen.Lit(target), jen.Lit(name), argsExpr, jen.Id("opts"), jen.Id("fn"),
			)),
		)
		f.Line()
		return
	}

	call := jen.Id("m").Dot("client").Dot("Call").Call(
		jen.Id("ctx"), jen.Lit(target), jen.Lit(name), argsExpr, jen.Id("opts"),
	)
	f.Commentf("%s calls %s.", goName, fn.Path)
	r.renderResultMethod(f, recv(), goName, params, call, fn.Returns)
}

// renderClass emits a wrapper struct, its constructor on the owning
// module struct, and method/attribute bindings.
func (r *renderer) renderClass(f *jen.File, ownerStruct string, cls *schema.Class, ownerMethods *namer) {
	className := exportName(cls.Name)
	if r.types.used[className] {
		className = ownerStruct + className
	}
	className, dup := r.types.claim(className)
	if dup {
		r.diag(cls.Path, "class wrapper renamed to "+className)
	}

	f.Commentf("%s wraps a foreign %s instance.", className, cls.Path)
	f.Type().Id(className).Struct(
		jen.Id("client").Op("*").Qual(runtimePkg, "Client"),
		jen.Id("ref").Qual(codecPkg, "Ref"),
	)
	f.Line()

	ctorName, dup := ownerMethods.claim("New" + className)
	if dup {
		r.diag(cls.Path, "constructor renamed to "+ctorName)
	}
	ctorParams, ctorArgs := bindingParams(cls.RequiredConstructorParams())
	f.Commentf("%s constructs a foreign %s.", ctorName, cls.Path)
	f.Func().Params(jen.Id("m").Op("*").Id(ownerStruct)).Id(ctorName).Params(ctorParams...).Params(
		jen.Op("*").Id(className), jen.Error(),
	).Block(
		jen.List(jen.Id("ref"), jen.Err()).Op(":=").Id("m").Dot("client").Dot("Construct").Call(
			jen.Id("ctx"), jen.Lit(cls.Path), ctorArgs, jen.Id("opts"),
		),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Op("&").Id(className).Values(jen.Dict{
			jen.Id("client"): jen.Id("m").Dot("client"),
			jen.Id("ref"):    jen.Id("ref"),
		}), jen.Nil()),
	)
	f.Line()

	methods := newNamer()
	methods.claim(className)
	refName, _ := methods.claim("Ref")

	f.Commentf("%s returns the underlying object reference.", refName)
	f.Func().Params(jen.Id("o").Op("*").Id(className)).Id(refName).Params().Qual(codecPkg, "Ref").Block(
		jen.Return(jen.Id("o").Dot("ref")),
	)
	f.Line()

	recv := func() *jen.Statement { return jen.Id("o").Op("*").Id(className) }
	for i := range cls.Methods {
		method := &cls.Methods[i]
		goName, dup := methods.claim(exportName(method.Name))
		if dup {
			r.diag(method.Path, "method renamed to "+goName)
		}
		params, argsExpr := bindingParams(method.RequiredParams())

		if method.Streaming {
			f.Commentf("%s opens a stream from %s.", goName, method.Path)
			f.Func().Params(recv()).Id(goName).Params(params...).Params(
				jen.Op("*").Qual(runtimePkg, "Stream"), jen.Error(),
			).Block(
				jen.Return(jen.Id("o").Dot("client").Dot("Stream").Call(
					jen.Id("ctx"), jen.Id("o").Dot("ref"), jen.Lit(method.Name), argsExpr, jen.Id("opts"),
				)),
			)
			f.Line()
			continue
		}

		call := jen.Id("o").Dot("client").Dot("Call").Call(
			jen.Id("ctx"), jen.Id("o").Dot("ref"), jen.Lit(method.Name), argsExpr, jen.Id("opts"),
		)
		f.Commentf("%s calls %s.", goName, method.Path)
		r.renderResultMethod(f, recv(), goName, params, call, method.Returns)
	}

	for _, attr := range cls.Attributes {
		getter, dup := methods.claim(exportName(attr.Name))
		if dup {
			r.diag(cls.Path+"."+attr.Name, "attribute getter renamed to "+getter)
		}
		getCall := jen.Id("o").Dot("client").Dot("GetAttr").Call(
			jen.Id("ctx"), jen.Id("o").Dot("ref"), jen.Lit(attr.Name), jen.Id("opts"),
		)
		f.Commentf("%s reads the %s attribute.", getter, attr.Name)
		r.renderResultMethod(f, recv(), getter,
			[]jen.Code{
				jen.Id("ctx").Qual("context", "Context"),
				jen.Id("opts").Op("*").Qual(runtimePkg, "Options"),
			},
			getCall, attr.Type)

		if !attr.Writable {
			continue
		}
		setter, dup := methods.claim("Set" + exportName(attr.Name))
		if dup {
			r.diag(cls.Path+"."+attr.Name, "attribute setter renamed to "+setter)
		}
		f.Commentf("%s writes the %s attribute.", setter, attr.Name)
		f.Func().Params(recv()).Id(setter).Params(
			jen.Id("ctx").Qual("context", "Context"),
			jen.Id("value").Add(goType(typemap.Map(attr.Type))),
			jen.Id("opts").Op("*").Qual(runtimePkg, "Options"),
		).Error().Block(
			jen.Return(jen.Id("o").Dot("client").Dot("SetAttr").Call(
				jen.Id("ctx"), jen.Id("o").Dot("ref"), jen.Lit(attr.Name), jen.Id("value"), jen.Id("opts"),
			)),
		)
		f.Line()
	}
}

// bindingParams builds the uniform signature: context first, required
// positional parameters in order, options always last.
func bindingParams(required []schema.Parameter) ([]jen.Code, jen.Code) {
	params := []jen.Code{jen.Id("ctx").Qual("context", "Context")}
	names := newNamer()
	args := make([]jen.Code, 0, len(required))
	for _, p := range required {
		id, _ := names.claim(paramName(p.Name))
		params = append(params, jen.Id(id).Add(goType(typemap.Map(p.Type))))
		args = append(args, jen.Id(id))
	}
	params = append(params, jen.Id("opts").Op("*").Qual(runtimePkg, "Options"))

	if len(args) == 0 {
		return params, jen.Nil()
	}
	return params, jen.Index().Any().Values(args...)
}

// renderResultMethod emits a binding whose result is coerced to the
// mapped return type.
func (r *renderer) renderResultMethod(f *jen.File, recv *jen.Statement, goName string, params []jen.Code, call *jen.Statement, ret schema.Type) {
	mapped := typemap.Map(ret)
	retType, coerce, nilZero := resultPlan(mapped)

	if coerce == nil {
		f.Func().Params(recv).Id(goName).Params(params...).Params(jen.Any(), jen.Error()).Block(
			jen.Return(call),
		)
		f.Line()
		return
	}

	var failure jen.Code
	if nilZero {
		failure = jen.Return(jen.Nil(), jen.Err())
	} else {
		failure = jen.Return(jen.Id("zero"), jen.Err())
	}
	body := []jen.Code{
		jen.List(jen.Id("result"), jen.Err()).Op(":=").Add(call),
		jen.If(jen.Err().Op("!=").Nil()).BlockFunc(func(g *jen.Group) {
			if !nilZero {
				g.Var().Id("zero").Add(retType)
			}
			g.Add(failure)
		}),
		jen.Return(coerce.Clone().Call(jen.Id("result"))),
	}
	f.Func().Params(recv).Id(goName).Params(params...).Params(retType, jen.Error()).Block(body...)
	f.Line()
}

// resultPlan picks the declared return type and coercion helper for a
// mapped type string. Shapes outside the helper set degrade to any.
func resultPlan(mapped string) (retType jen.Code, coerce *jen.Statement, nilZero bool) {
	as := func(t jen.Code) *jen.Statement {
		return jen.Qual(runtimePkg, "As").Index(t)
	}
	scalar := func(t string) jen.Code {
		switch t {
		case "bool":
			return jen.Bool()
		case "int64":
			return jen.Int64()
		case "float64":
			return jen.Float64()
		case "string":
			return jen.String()
		}
		return nil
	}

	switch {
	case mapped == "any":
		return nil, nil, false

	case scalar(mapped) != nil:
		t := scalar(mapped)
		return t, as(t), false

	case mapped == "*codec.Ref":
		t := jen.Op("*").Qual(codecPkg, "Ref")
		return t, as(jen.Op("*").Qual(codecPkg, "Ref")), true

	case mapped == "[]byte":
		t := jen.Qual(codecPkg, "Bytes")
		return t, as(jen.Qual(codecPkg, "Bytes")), true

	case strings.HasPrefix(mapped, "[]"):
		elem := scalar(strings.TrimPrefix(mapped, "[]"))
		if elem == nil {
			return nil, nil, false
		}
		return jen.Index().Add(elem), jen.Qual(runtimePkg, "AsSlice").Index(elem), true

	case strings.HasPrefix(mapped, "map[string]"):
		val := scalar(strings.TrimPrefix(mapped, "map[string]"))
		if val == nil {
			return nil, nil, false
		}
		return jen.Map(jen.String()).Add(val), jen.Qual(runtimePkg, "AsMap").Index(val), true
	}

	return nil, nil, false
}

// goType renders a mapped type string as a type expression for
// parameter declarations.
func goType(mapped string) jen.Code {
	switch mapped {
	case "any":
		return jen.Any()
	case "bool":
		return jen.Bool()
	case "int64":
		return jen.Int64()
	case "float64":
		return jen.Float64()
	case "string":
		return jen.String()
	case "[]byte":
		return jen.Index().Byte()
	case "*codec.Ref":
		return jen.Op("*").Qual(codecPkg, "Ref")
	}
	switch {
	case strings.HasPrefix(mapped, "[]"):
		return jen.Index().Add(goType(strings.TrimPrefix(mapped, "[]")))
	case strings.HasPrefix(mapped, "map["):
		rest := strings.TrimPrefix(mapped, "map[")
		i := strings.Index(rest, "]")
		if i < 0 {
			return jen.Any()
		}
		return jen.Map(goType(rest[:i])).Add(goType(rest[i+1:]))
	case strings.HasPrefix(mapped, "*"):
		return jen.Op("*").Add(goType(strings.TrimPrefix(mapped, "*")))
	}
	return jen.Any()
}
