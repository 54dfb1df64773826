package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		want    any
		wantErr bool
	}{
		{name: "plain path", spec: "/var/www/releases", want: &local{}},
		{name: "relative path", spec: "releases", want: &local{}},
		{name: "rsync scheme", spec: "rsync://mirror.example.com/releases", want: &rsync{}},
		{name: "host shorthand", spec: "mirror.example.com:/srv/releases", want: &rsync{}},
		{name: "user at host", spec: "deploy@mirror:/srv/releases", want: &rsync{}},
		{name: "unknown scheme", spec: "ftp://mirror/releases", wantErr: true},
		{name: "scheme is not a host", spec: "https://mirror.example.com/releases", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, Options{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestResolve_S3RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := Resolve("s3://releases/mirror", Options{})
	require.Error(t, err)

	got, err := Resolve("s3://releases/mirror", Options{S3: S3Options{
		Endpoint:  "minio.example.com:9000",
		AccessKey: "key",
		SecretKey: "secret",
	}})
	require.NoError(t, err)
	assert.IsType(t, &s3{}, got)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	files, err := walkFiles(root)
	require.NoError(t, err)
	for rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		out[rel] = string(data)
	}
	return out
}

func TestLocal_CopyMergesWithoutDeleting(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	target := t.TempDir()
	writeTree(t, src, map[string]string{
		"v1.0/a.zip":                   "new a",
		"v1.0/archive/widget-v1.0.zip": "zip",
		"v1.1/b.zip":                   "b",
	})
	writeTree(t, target, map[string]string{
		"v1.0/a.zip":    "old a",
		"v0.9/keep.bin": "keep",
	})

	tr := newLocal(target)
	require.NoError(t, tr.Copy(context.Background(), src))

	assert.Equal(t, map[string]string{
		"v1.0/a.zip":                   "new a",
		"v1.0/archive/widget-v1.0.zip": "zip",
		"v1.1/b.zip":                   "b",
		"v0.9/keep.bin":                "keep",
	}, readTree(t, target))
}

func TestLocal_MoveRemovesSource(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
	target := t.TempDir()

	tr := newLocal(target)
	require.NoError(t, tr.Move(context.Background(), src, "v1.0/a.zip"))

	data, err := os.ReadFile(filepath.Join(target, "v1.0", "a.zip"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_MirrorDeletesExtrasKeepsExisting(t *testing.T) {
	t.Parallel()

	// The skeleton holds empty placeholders; mirror must delete what
	// the skeleton lacks but never rewrite what the target has.
	skeleton := t.TempDir()
	target := t.TempDir()
	writeTree(t, skeleton, map[string]string{
		"v1.0/a.zip":                   "",
		"v1.0/archive/widget-v1.0.zip": "",
	})
	writeTree(t, target, map[string]string{
		"v1.0/a.zip":                   "real content",
		"v1.0/b.zip":                   "dropped asset",
		"v0.9/old.bin":                 "vanished tag",
		"v1.0/archive/widget-v1.0.zip": "real zip",
	})

	tr := newLocal(target)
	require.NoError(t, tr.Mirror(context.Background(), skeleton))

	assert.Equal(t, map[string]string{
		"v1.0/a.zip":                   "real content",
		"v1.0/archive/widget-v1.0.zip": "real zip",
	}, readTree(t, target))

	// The vanished tag's directory is pruned entirely.
	_, err := os.Stat(filepath.Join(target, "v0.9"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_MirrorNeverCreates(t *testing.T) {
	t.Parallel()

	// A skeleton entry with no counterpart on the target must not
	// materialize as an empty placeholder; filling holes is the fix
	// pass's job.
	skeleton := t.TempDir()
	target := t.TempDir()
	writeTree(t, skeleton, map[string]string{"v1.0/a.zip": ""})

	tr := newLocal(target)
	require.NoError(t, tr.Mirror(context.Background(), skeleton))

	assert.Empty(t, readTree(t, target))
}

func TestLocal_Exists(t *testing.T) {
	t.Parallel()

	target := t.TempDir()
	writeTree(t, target, map[string]string{"v1.0/a.zip": "x"})

	tr := newLocal(target)
	ctx := context.Background()

	ok, err := tr.Exists(ctx, "v1.0/a.zip")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.Exists(ctx, "v1.0/missing.zip")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRsync_Args(t *testing.T) {
	t.Parallel()

	r := newRsync("deploy@mirror:/srv/releases")

	assert.Equal(t,
		[]string{"-a", "/tmp/stage/add/", "deploy@mirror:/srv/releases/"},
		r.copyArgs("/tmp/stage/add"))

	// A tag's first file lands in a directory the target does not
	// have yet; the transfer must create the missing parents itself.
	args := r.moveArgs("/tmp/stage/add/v1.0/archive/widget-v1.0.zip", "v1.0/archive/widget-v1.0.zip")
	assert.Contains(t, args, "--mkpath")
	assert.Contains(t, args, "--remove-source-files")
	assert.Equal(t, "deploy@mirror:/srv/releases/v1.0/archive/widget-v1.0.zip", args[len(args)-1])

	args = r.mirrorArgs("/tmp/stage/skeleton")
	assert.Contains(t, args, "--existing")
	assert.Contains(t, args, "--ignore-existing")
	assert.Contains(t, args, "--delete")
	assert.NotContains(t, args, "--mkpath")
}

func TestExitError_Message(t *testing.T) {
	t.Parallel()

	err := &ExitError{Cmd: "rsync -a src/ dest/", ExitCode: 23}
	assert.Equal(t, "rsync -a src/ dest/ exited with code 23", err.Error())

	err = &ExitError{Cmd: "rsync -a src/ dest/", ExitCode: -1, Signal: "killed"}
	assert.Equal(t, "rsync -a src/ dest/ killed by signal killed", err.Error())
}
