package host

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/woxQAQ/wbg-host/internal/wasm"
)

func TestStem(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"__wbg_createElement_fdd5c113cb84539e", "createElement", true},
		{"__wbg_instanceof_Window_3e5cd1f48c152d01", "instanceof_Window", true},
		{"__wbg_new0_622c21a64f3d83ea", "new0", true},
		{"__wbindgen_throw", "", false},
		{"__wbg_nohash", "", false},
		{"log", "", false},
	}
	for _, tt := range tests {
		got, ok := Stem(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Stem(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEntryNameVariants(t *testing.T) {
	e := entry("Function.call#1", "iii>i", nil)
	if e.Stem != "call" {
		t.Errorf("Stem = %q, want call", e.Stem)
	}
	if e.Signature() != "(i32,i32,i32)->(i32)" {
		t.Errorf("Signature() = %s", e.Signature())
	}
	if e := entry("global", ">i", nil); e.Stem != "global" {
		t.Errorf("Stem = %q, want global", e.Stem)
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTable() with duplicate names should panic")
		}
	}()
	NewTable([]*Entry{entry("a.b", ">", nil)}, []*Entry{entry("a.b", ">", nil)})
}

func TestResolve(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name    string
		imp     wasm.Import
		aliases map[string]string
		want    string
		wantErr string
	}{
		{
			name: "intrinsic by exact name",
			imp:  testImport("__wbindgen_string_new", "ii>i"),
			want: "__wbindgen_string_new",
		},
		{
			name: "stem and signature",
			imp:  testImport("__wbg_createElement_fdd5c113cb84539e", "iii>i"),
			want: "Document.createElement",
		},
		{
			name: "signature selects among variants",
			imp:  testImport("__wbg_then_8371cc12cfedc5a2", "iii>i"),
			want: "Promise.then#2",
		},
		{
			name:    "ambiguous stem",
			imp:     testImport("__wbg_new_abda76e883ba8a5f", ">i"),
			wantErr: "ambiguous stem \"new\"",
		},
		{
			name:    "alias disambiguates",
			imp:     testImport("__wbg_new_abda76e883ba8a5f", ">i"),
			aliases: map[string]string{"__wbg_new_abda76e883ba8a5f": "Error.new"},
			want:    "Error.new",
		},
		{
			name:    "alias to unknown entry",
			imp:     testImport("__wbg_new_abda76e883ba8a5f", ">i"),
			aliases: map[string]string{"__wbg_new_abda76e883ba8a5f": "Nope.new"},
			wantErr: "unknown entry",
		},
		{
			name:    "alias signature checked",
			imp:     testImport("__wbg_new_abda76e883ba8a5f", "i>i"),
			aliases: map[string]string{"__wbg_new_abda76e883ba8a5f": "Error.new"},
			wantErr: "import expects (i32)->(i32)",
		},
		{
			name:    "unknown stem",
			imp:     testImport("__wbg_vibrate_0123456789abcdef", "ii>i"),
			wantErr: "no host operation named \"vibrate\"",
		},
		{
			name:    "known stem with wrong type",
			imp:     testImport("__wbg_createElement_fdd5c113cb84539e", "ii>i"),
			wantErr: "with type (i32,i32)->(i32)",
		},
		{
			name:    "unknown intrinsic",
			imp:     testImport("__wbindgen_future_thing", ">"),
			wantErr: "unknown intrinsic",
		},
		{
			name:    "intrinsic signature checked",
			imp:     testImport("__wbindgen_throw", "i>"),
			wantErr: "__wbindgen_throw has type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := table.Resolve(tt.imp, tt.aliases)
			if tt.wantErr != "" {
				var resErr *wasm.ImportResolutionError
				if !errors.As(err, &resErr) {
					t.Fatalf("Resolve() error = %v, want ImportResolutionError", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Resolve() error = %q, want it to contain %q", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.imp.Name) {
					t.Errorf("Resolve() error %q should name the import", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}
			if e.Name != tt.want {
				t.Errorf("Resolve() = %s, want %s", e.Name, tt.want)
			}
		})
	}
}

func TestAmbiguousStemListsCandidates(t *testing.T) {
	_, err := DefaultTable().Resolve(testImport("__wbg_get_7b48513de5dc5ea4", "ii>i"), nil)
	if err == nil {
		t.Fatal("Resolve() should fail for get")
	}
	for _, want := range []string{"Array.get", "Reflect.get"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should list %s", err, want)
		}
	}
}

// tracerImports is a sample of the imports a generated module declares,
// with the aliases its manifest provides.
var tracerImports = []struct {
	name, sig, alias string
}{
	{"__wbindgen_object_drop_ref", "i>", ""},
	{"__wbindgen_number_get", "ii>", ""},
	{"__wbindgen_bigint_get_as_i64", "ii>", ""},
	{"__wbindgen_memory", ">i", ""},
	{"__wbg_error_f851667af71bcfc6", "ii>", ""},
	{"__wbg_error_e60eff06f24ab7a4", "i>", ""},
	{"__wbg_new_abda76e883ba8a5f", ">i", "Error.new"},
	{"__wbg_new_7a20246daa6eec7e", ">i", "Headers.new"},
	{"__wbg_new_bc66a7e94d71957f", ">i", "URLSearchParams.new"},
	{"__wbg_new_ffc6d4d085022169", ">i", "Array.new"},
	{"__wbg_new_9fb8d994e1c0aaac", ">i", "Object.new"},
	{"__wbg_new_9e08fd37c1c53142", "ii>i", ""},
	{"__wbg_new_e145ee1b0ed9b4aa", "iiii>i", ""},
	{"__wbg_new_8f67e318f15d7254", "i>i", ""},
	{"__wbg_set_9182712abebf82ef", "iii>", "Object.set"},
	{"__wbg_set_f2740edb12e318cd", "iii>", "Array.set"},
	{"__wbg_set_2357bf09366ee480", "iii>", "Uint8Array.set"},
	{"__wbg_set_759f75cd92b612d2", "iii>i", ""},
	{"__wbg_set_27f236f6d7a28c29", "iiiii>", ""},
	{"__wbg_get_f01601b5a68d10e3", "ii>i", "Array.get"},
	{"__wbg_get_7b48513de5dc5ea4", "ii>i", "Reflect.get"},
	{"__wbg_next_6529ee0cca8d57ed", "i>i", "Iterator.next"},
	{"__wbg_next_9b877f231f476d01", "i>i", "Object.next"},
	{"__wbg_length_f845c1c304d9837a", "i>i", ""},
	{"__wbg_length_1d25fa9e4ac21ce7", "i>i", ""},
	{"__wbg_origin_595edc88be6e66b8", "ii>", ""},
	{"__wbg_origin_aab6d2be79bcec84", "ii>", ""},
	{"__wbg_fetch_6c415b3a07763878", "ii>i", ""},
	{"__wbg_addEventListener_374cbfd2bbc19ccf", "iiiii>", ""},
	{"__wbg_scrollTo_eb21c4452d7b3cd6", "iFF>", ""},
	{"__wbg_getTime_9272be78826033e1", "i>F", ""},
	{"__wbg_pushState_e159043fce8f87bc", "iiiiii>", ""},
	{"__wbg_init_0dd800d675f746ca", "iiii>i", ""},
}

func TestDefaultTableResolvesGeneratedImports(t *testing.T) {
	table := DefaultTable()
	aliases := make(map[string]string)
	for _, imp := range tracerImports {
		if imp.alias != "" {
			aliases[imp.name] = imp.alias
		}
	}

	seen := make(map[string]string)
	for _, imp := range tracerImports {
		e, err := table.Resolve(testImport(imp.name, imp.sig), aliases)
		if err != nil {
			t.Errorf("Resolve(%s) failed: %v", imp.name, err)
			continue
		}
		seen[imp.name] = e.Name
	}

	want := map[string]string{
		"__wbg_set_759f75cd92b612d2":    "Reflect.set",
		"__wbg_set_27f236f6d7a28c29":    "Headers.set",
		"__wbg_new_9e08fd37c1c53142":    "URL.new",
		"__wbg_new_e145ee1b0ed9b4aa":    "RegExp.new",
		"__wbg_new_8f67e318f15d7254":    "Uint8Array.new",
		"__wbg_error_f851667af71bcfc6":  "console.error#panic",
		"__wbg_error_e60eff06f24ab7a4":  "console.error",
		"__wbg_length_f845c1c304d9837a": "length",
	}
	got := make(map[string]string)
	for k := range want {
		got[k] = seen[k]
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestHostFunctionsBindsClosures(t *testing.T) {
	te := newTestEnv(t)
	table := DefaultTable()

	imports := []wasm.Import{
		testImport("__wbindgen_string_new", "ii>i"),
		testImport("__wbindgen_closure_wrapper4457", "iii>i"),
	}
	_, err := te.HostFunctions(table, imports, Bindings{})
	if err == nil || !strings.Contains(err.Error(), "not declared in the manifest") {
		t.Fatalf("HostFunctions() error = %v, want undeclared closure error", err)
	}

	b := Bindings{Closures: map[string]Closure{
		"__wbindgen_closure_wrapper4457": {Destructor: 432, Mutable: true, Invoke: "invoke_mut", Args: 1},
	}}
	funcs, err := te.HostFunctions(table, imports, b)
	if err != nil {
		t.Fatalf("HostFunctions() failed: %v", err)
	}
	names := make([]string, len(funcs))
	for i, f := range funcs {
		names[i] = f.Name
	}
	if diff := cmp.Diff([]string{"__wbindgen_string_new", "__wbindgen_closure_wrapper4457"}, names); diff != "" {
		t.Errorf("bound names mismatch (-want +got):\n%s", diff)
	}

	bad := []wasm.Import{testImport("__wbindgen_closure_wrapper4457", "ii>i")}
	if _, err := te.HostFunctions(table, bad, b); err == nil {
		t.Error("closure wrapper with the wrong type should fail")
	}

	other := []wasm.Import{{Module: "env", Name: "abort"}}
	if _, err := te.HostFunctions(table, other, b); err == nil {
		t.Error("imports outside wbg should fail")
	}
}
