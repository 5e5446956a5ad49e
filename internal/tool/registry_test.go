package tool

import "testing"

func TestCatalogNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range All() {
		if seen[d.Name] {
			t.Fatalf("duplicate tool name %q", d.Name)
		}
		seen[d.Name] = true
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("update_file")
	if !ok {
		t.Fatal("expected update_file to be registered")
	}
	req := d.RequiredParams()
	want := []string{"repo", "path", "content"}
	if len(req) != len(want) {
		t.Fatalf("required params = %v, want %v", req, want)
	}
	for i := range want {
		if req[i] != want[i] {
			t.Fatalf("required params = %v, want %v", req, want)
		}
	}

	if _, ok := Lookup("no_such_tool"); ok {
		t.Fatal("expected lookup miss for unknown tool")
	}
}

func TestDestructiveSet(t *testing.T) {
	for _, name := range []string{"delete_repo", "delete_file"} {
		if !Destructive(name) {
			t.Fatalf("expected %s to be destructive", name)
		}
	}
	for _, name := range []string{"create_repo", "update_file", "list_repos"} {
		if Destructive(name) {
			t.Fatalf("expected %s not to be destructive", name)
		}
	}
}

func TestEveryRequiredParamHasHint(t *testing.T) {
	for _, d := range All() {
		for _, p := range d.Params {
			if p.Required && p.Hint == "" {
				t.Fatalf("%s.%s is required but has no clarification hint", d.Name, p.Name)
			}
		}
	}
}
