package price

import "testing"

func TestCodeFor(t *testing.T) {
	cases := map[string]string{
		"bitcoin":  "btc",
		"ethereum": "eth",
		"zenon-2":  "znn",
		"quasar-2": "qsr",
	}
	for providerID, want := range cases {
		code, ok := CodeFor(providerID)
		if !ok || code != want {
			t.Fatalf("CodeFor(%s) = %s, %v; want %s", providerID, code, ok, want)
		}
	}

	if _, ok := CodeFor("dogecoin"); ok {
		t.Fatalf("expected unknown provider id to be rejected")
	}
}

func TestAssetsIsACopy(t *testing.T) {
	first := Assets()
	first[0].Code = "mutated"

	if got := Assets()[0].Code; got != "btc" {
		t.Fatalf("Assets() leaked internal state: %s", got)
	}
}
