package buildplan

import (
	"testing"

	"appforge/internal/domain/model"
)

func TestDetectAppType(t *testing.T) {
	tests := []struct {
		name  string
		files model.FileSet
		want  model.AppType
	}{
		{
			name: "express backend",
			files: model.FileSet{
				"package.json": []byte(`{"dependencies":{"express":"^4.18.0"}}`),
				"server.js":    []byte("const app = require('express')()"),
			},
			want: model.AppTypeBackendOnly,
		},
		{
			name: "vite frontend",
			files: model.FileSet{
				"package.json": []byte(`{"devDependencies":{"vite":"^5.0.0"},"scripts":{"build":"vite build"}}`),
				"src/App.jsx":  []byte("export default function App() {}"),
			},
			want: model.AppTypeFrontendOnly,
		},
		{
			name: "fullstack",
			files: model.FileSet{
				"package.json": []byte(`{"dependencies":{"express":"^4.18.0"},"devDependencies":{"vite":"^5.0.0"}}`),
				"server.js":    []byte("const app = require('express')()"),
				"src/App.jsx":  []byte("export default function App() {}"),
			},
			want: model.AppTypeFullstack,
		},
		{
			name: "build script implies frontend tooling",
			files: model.FileSet{
				"package.json": []byte(`{"scripts":{"build":"webpack"}}`),
			},
			want: model.AppTypeFrontendOnly,
		},
		{
			name: "plain static site",
			files: model.FileSet{
				"index.html": []byte("<html></html>"),
				"style.css":  []byte("body {}"),
			},
			want: model.AppTypeFrontendOnly,
		},
		{
			name: "server entry point without manifest",
			files: model.FileSet{
				"server.js": []byte("require('http').createServer().listen(3000)"),
			},
			want: model.AppTypeBackendOnly,
		},
		{
			name: "corrupt manifest falls back to file evidence",
			files: model.FileSet{
				"package.json": []byte("not json"),
				"app.js":       []byte("server"),
			},
			want: model.AppTypeBackendOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectAppType(tt.files); got != tt.want {
				t.Errorf("DetectAppType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainerPort(t *testing.T) {
	if got := model.AppTypeFrontendOnly.ContainerPort(); got != 80 {
		t.Errorf("frontend container port = %d, want 80", got)
	}
	if got := model.AppTypeFullstack.ContainerPort(); got != 3000 {
		t.Errorf("fullstack container port = %d, want 3000", got)
	}
}
