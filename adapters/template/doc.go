// Package exporttemplate renders the table capture page as HTML.
//
// The built-in template is compiled with pongo2 and embedded in the binary.
// Callers may register their own templates on a PongoExecutor or supply any
// TemplateExecutor. The same HTML feeds the Chromium capture backend and the
// preview endpoint.
package exporttemplate
