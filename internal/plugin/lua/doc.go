// Package lua runs user-supplied Lua scripts that decide which resources
// the rendered editor accepts.
//
// Scripts run in a sandboxed gopher-lua state. Only the base, table,
// string and math libraries are opened, and the loaders that could read
// code from disk are removed. A predicate script defines a global
// function:
//
//	function accepts(uri, path, ext)
//	  return ext == ".html" or ext == ".md"
//	end
//
// Each call runs under a timeout, and a script that errors or runs out of
// time rejects the URI.
package lua
