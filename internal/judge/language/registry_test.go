package language

import (
	"testing"

	"codequest/internal/testutil"
	appErr "codequest/pkg/errors"
)

func TestResolveDefaults(t *testing.T) {
	reg := NewRegistry(nil)

	cases := []struct {
		name string
		want int
	}{
		{name: "c++", want: 54},
		{name: "java", want: 62},
		{name: "javascript", want: 63},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.Resolve(tc.name)
			testutil.MustNoError(t, err)
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestResolveAliasMatchesCanonical(t *testing.T) {
	reg := NewRegistry(nil)

	viaAlias, err := reg.ResolveAlias("cpp")
	testutil.MustNoError(t, err)
	canonical, err := reg.ResolveAlias("c++")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, viaAlias, canonical)
}

func TestResolveUnsupported(t *testing.T) {
	reg := NewRegistry(nil)

	for _, name := range []string{"python", "C++", "Java", "cpp", ""} {
		_, err := reg.Resolve(name)
		if !appErr.Is(err, appErr.LanguageNotSupported) {
			t.Fatalf("Resolve(%q) error = %v, want LanguageNotSupported", name, err)
		}
	}
}

func TestNewRegistryCopiesTable(t *testing.T) {
	ids := map[string]int{"go": 60}
	reg := NewRegistry(ids)
	ids["go"] = 1

	got, err := reg.Resolve("go")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got, 60)
	testutil.AssertEqual(t, reg.Supported(), []string{"go"})
}

func TestNewRegistryStoresAliasKeysCanonically(t *testing.T) {
	reg := NewRegistry(map[string]int{"cpp": 76, "java": 62})

	got, err := reg.ResolveAlias("cpp")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got, 76)
	got, err = reg.ResolveAlias("c++")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got, 76)

	reg = NewRegistry(map[string]int{"cpp": 54, "c++": 76})
	got, err = reg.Resolve("c++")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got, 76)
}

func TestCanonicalTable(t *testing.T) {
	table, err := CanonicalTable(map[string]int{"cpp": 54, "c++": 54, "java": 62})
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, table, map[string]int{"c++": 54, "java": 62})

	for _, bad := range []map[string]int{
		{"cpp": 54, "c++": 76},
		{"java": 0},
		{"": 1},
	} {
		_, err := CanonicalTable(bad)
		testutil.AssertNotNil(t, err)
	}
}
