package indexing

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFileSystem implements FileChecker for testing
type MockFileSystem struct {
	files map[string]bool
	dirs  map[string]bool
}

// NewMockFileSystem creates a new mock filesystem
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
}

func (m *MockFileSystem) AddFile(path string) { m.files[path] = true }
func (m *MockFileSystem) AddDir(path string)  { m.dirs[path] = true }

// mockFileInfo implements fs.FileInfo for testing
type mockFileInfo struct {
	name  string
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return 0 }
func (m *mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

func (m *MockFileSystem) Exists(path string) bool {
	return m.dirs[path] || m.files[path]
}

func (m *MockFileSystem) IsDir(path string) bool {
	return m.dirs[path]
}

func (m *MockFileSystem) ReadDir(path string) ([]os.DirEntry, error) {
	if !m.dirs[path] {
		return nil, fs.ErrNotExist
	}
	var out []os.DirEntry
	for f := range m.files {
		if filepath.Dir(f) == path {
			out = append(out, fs.FileInfoToDirEntry(&mockFileInfo{name: filepath.Base(f)}))
		}
	}
	for d := range m.dirs {
		if d != path && filepath.Dir(d) == path {
			out = append(out, fs.FileInfoToDirEntry(&mockFileInfo{name: filepath.Base(d), isDir: true}))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func TestDetectProjectRoot_MarkerPriority(t *testing.T) {
	tests := []struct {
		name       string
		setupFS    func(*MockFileSystem)
		path       string
		wantIsRoot bool
		wantMarker string
	}{
		{
			name: "kdl config takes priority over git",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddFile("/project/.i18nsync.kdl")
				m.AddDir("/project/.git")
			},
			path:       "/project",
			wantIsRoot: true,
			wantMarker: ".i18nsync.kdl",
		},
		{
			name: "kdl preferred over toml",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddFile("/project/.i18nsync.kdl")
				m.AddFile("/project/.i18nsync.toml")
			},
			path:       "/project",
			wantIsRoot: true,
			wantMarker: ".i18nsync.kdl",
		},
		{
			name: "git detected when no config",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddDir("/project/.git")
			},
			path:       "/project",
			wantIsRoot: true,
			wantMarker: ".git",
		},
		{
			name: "package.json detected",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddFile("/project/package.json")
			},
			path:       "/project",
			wantIsRoot: true,
			wantMarker: "package.json",
		},
		{
			name: "locales directory with a language file",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddDir("/project/locales")
				m.AddFile("/project/locales/en.json")
			},
			path:       "/project",
			wantIsRoot: true,
			wantMarker: "locales/",
		},
		{
			name: "empty locales directory is not enough",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
				m.AddDir("/project/locales")
			},
			path:       "/project",
			wantIsRoot: false,
		},
		{
			name: "empty path returns false",
			setupFS: func(m *MockFileSystem) {
				m.AddDir("/project")
			},
			path:       "",
			wantIsRoot: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFS := NewMockFileSystem()
			tt.setupFS(mockFS)

			pi := NewProjectInitializerWithFileChecker(mockFS)
			gotIsRoot, gotMarker := pi.DetectProjectRoot(tt.path)
			assert.Equal(t, tt.wantIsRoot, gotIsRoot)
			assert.Equal(t, tt.wantMarker, gotMarker)
		})
	}
}

func TestFindProjectRoot_ParentConfigWinsOverNestedGit(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.AddDir("/repo")
	mockFS.AddFile("/repo/.i18nsync.kdl")
	mockFS.AddDir("/repo/app")
	mockFS.AddDir("/repo/app/.git")
	mockFS.AddDir("/repo/app/src")

	root, marker, err := NewProjectInitializerWithFileChecker(mockFS).FindProjectRoot("/repo/app/src")
	require.NoError(t, err)
	assert.Equal(t, "/repo", root)
	assert.Equal(t, ".i18nsync.kdl", marker)
}

func TestFindProjectRoot_NearestMarker(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.AddDir("/repo")
	mockFS.AddDir("/repo/.git")
	mockFS.AddDir("/repo/web")
	mockFS.AddFile("/repo/web/package.json")
	mockFS.AddDir("/repo/web/src")

	root, marker, err := NewProjectInitializerWithFileChecker(mockFS).FindProjectRoot("/repo/web/src")
	require.NoError(t, err)
	assert.Equal(t, "/repo/web", root)
	assert.Equal(t, "package.json", marker)
}

func TestFindProjectRoot_NotFound(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.AddDir("/nothing")

	_, _, err := NewProjectInitializerWithFileChecker(mockFS).FindProjectRoot("/nothing")
	assert.Error(t, err)

	_, _, err = NewProjectInitializerWithFileChecker(mockFS).FindProjectRoot("")
	assert.Error(t, err)
}

func TestGetProjectRoot_RealFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".i18nsync.toml"), []byte(""), 0o644))
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	root, marker, err := GetProjectRoot(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
	assert.Equal(t, ".i18nsync.toml", marker)
}
