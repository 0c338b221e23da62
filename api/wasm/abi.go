package wasm

// ImportModule is the namespace guest modules import host operations from.
const ImportModule = "wbg"

// Guest exports consumed by the host.
const (
	ExportMemory   = "memory"
	ExportMalloc   = "__wbindgen_malloc"
	ExportRealloc  = "__wbindgen_realloc"
	ExportFree     = "__wbindgen_free"
	ExportExnStore = "__wbindgen_exn_store"
	ExportStart    = "__wbindgen_start"
)

// Import name prefixes.
const (
	// IntrinsicPrefix marks imports resolved by exact name.
	IntrinsicPrefix = "__wbindgen_"

	// BindingPrefix marks generated bindings named "__wbg_<stem>_<hash>".
	BindingPrefix = "__wbg_"

	// ClosureWrapperPrefix marks closure constructors
	// "__wbindgen_closure_wrapper<N>(a, b, unused) -> handle".
	ClosureWrapperPrefix = "__wbindgen_closure_wrapper"
)

// Reserved heap layout.
const (
	// SentinelSlots is the run of undefined slots at the start of the heap.
	SentinelSlots = 128

	HandleUndefined uint32 = 128
	HandleNull      uint32 = 129
	HandleTrue      uint32 = 130
	HandleFalse     uint32 = 131

	// ReservedHandles is the first handle that can be reclaimed.
	ReservedHandles uint32 = 132
)

// BooleanAbsent is returned by boolean_get for non-boolean values.
const BooleanAbsent = 2
