// Package wasm describes the ABI shared by wasm-bindgen style guest modules
// and the wbg host.
//
// Guests import every host operation from the "wbg" namespace and export:
//
//	memory
//	__wbindgen_malloc(size, align i32) i32
//	__wbindgen_realloc(ptr, oldSize, newSize, align i32) i32   (optional)
//	__wbindgen_free(ptr, size, align i32)
//	__wbindgen_exn_store(handle i32)
//	__wbindgen_start()
//	__wbindgen_export_2                                         (funcref table)
//
// NOTE: i32 is used for pointers, lengths and handles because WebAssembly
// uses a 32-bit linear memory model.
package wasm
