package versions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/labbook/store"
)

const (
	codeA = "func f(x int) int { return x * x }"
	codeB = "func f(x int) int { return x * x * x }"
)

func TestResolve(t *testing.T) {
	root := filepath.Join(t.TempDir(), "square")

	first, err := Resolve(root, codeA, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "version-1"), first.Home())

	again, err := Resolve(root, codeA, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, first.Home(), again.Home())

	changed, err := Resolve(root, codeB, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "version-2"), changed.Home())

	reverted, err := Resolve(root, codeA, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, first.Home(), reverted.Home())

	versions, err := All(root)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestResolveDistinguishesBackends(t *testing.T) {
	root := t.TempDir()

	a, err := Resolve(root, codeA, store.JSONBackendName)
	require.NoError(t, err)

	b, err := Resolve(root, codeA, store.CSVBackendName)
	require.NoError(t, err)

	assert.NotEqual(t, a.Home(), b.Home())
	assert.Equal(t, store.CSVBackendName, b.Name())
}

func TestResolveIsWhitespaceSensitive(t *testing.T) {
	root := t.TempDir()

	a, err := Resolve(root, codeA, store.YAMLBackendName)
	require.NoError(t, err)

	b, err := Resolve(root, codeA+"\n", store.YAMLBackendName)
	require.NoError(t, err)

	assert.NotEqual(t, a.Home(), b.Home())
}

func TestRenamedVersions(t *testing.T) {
	root := t.TempDir()

	_, err := Resolve(root, codeA, store.JSONBackendName)
	require.NoError(t, err)

	_, err = Resolve(root, codeB, store.JSONBackendName)
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(root, "version-2"), filepath.Join(root, "cubic")))

	highest, err := MaxVersion(root)
	require.NoError(t, err)
	assert.Equal(t, 1, highest)

	// The renamed version still matches its code.
	cubic, err := Resolve(root, codeB, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cubic"), cubic.Home())

	named, err := Find(root, Named("cubic"))
	require.NoError(t, err)
	require.NotNil(t, named)
	assert.Equal(t, cubic.Home(), named.Home())

	versions, err := All(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "cubic"), filepath.Join(root, "version-1")}, versions)

	// New code gets the next number after the highest numbered version.
	fresh, err := Resolve(root, "something else", store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "version-2"), fresh.Home())
}

func TestFindMissingRoot(t *testing.T) {
	backend, err := Find(filepath.Join(t.TempDir(), "made-up-path"), Latest())
	require.NoError(t, err)
	assert.Nil(t, backend)
}

func TestLatest(t *testing.T) {
	root := t.TempDir()

	for _, code := range []string{codeA, codeB, "third"} {
		_, err := Resolve(root, code, store.JSONBackendName)
		require.NoError(t, err)
	}

	latest, err := Find(root, Latest())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, filepath.Join(root, "version-3"), latest.Home())
}

func TestUnlabelledDirectoriesAreIgnored(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "version-7", "scratch"), 0o755))

	versions, err := All(root)
	require.NoError(t, err)
	assert.Empty(t, versions)

	created, err := Create(root, codeA, store.JSONBackendName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "version-1"), created.Home())
}

func TestConcurrentResolveAgrees(t *testing.T) {
	root := t.TempDir()

	const callers = 6

	homes := make(chan string, callers)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		go func() {
			b, err := Create(root, codeA, store.JSONBackendName)
			if err != nil {
				errs <- err

				return
			}

			homes <- b.Home()
		}()
	}

	seen := map[string]bool{}

	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			require.NoError(t, err)
		case home := <-homes:
			assert.False(t, seen[home], "version %s handed out twice", home)
			seen[home] = true
		}
	}

	highest, err := MaxVersion(root)
	require.NoError(t, err)
	assert.Equal(t, callers, highest)
}

func TestCreateUnknownBackend(t *testing.T) {
	_, err := Create(t.TempDir(), codeA, "parquet")

	var unknown *store.ErrUnknownBackend
	assert.ErrorAs(t, err, &unknown)
}

func TestNumber(t *testing.T) {
	n, ok := Number("version-12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = Number("version-final")
	assert.False(t, ok)

	_, ok = Number("cubic")
	assert.False(t, ok)
}
