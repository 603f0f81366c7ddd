// Package template implements the typed SQL template compiler: a closed
// set of Element variants assembled into a Template, a TemplateCompiler
// that turns a Template into a cache-reusable CompiledTemplate, and a
// TemplateBinder/BindVars pair that turns a CompiledTemplate plus runtime
// values into SQL text and ordered PositionalParameters.
//
// Compilation and binding are strictly separated: compilation never
// touches runtime record values, and binding never re-derives anything
// schema- or alias-related that compilation already resolved. This is
// what makes a CompiledTemplate safe to share across goroutines and
// across cache.Cache entries.
package template
