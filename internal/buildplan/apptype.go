package buildplan

import (
	"encoding/json"
	"path"

	"appforge/internal/domain/model"
)

// webFrameworks are the server frameworks the generator is known to emit.
var webFrameworks = []string{"express", "fastify", "koa", "hapi", "@hapi/hapi"}

// frontendBuildTools are manifest dependencies that imply a frontend build step.
var frontendBuildTools = []string{"vite", "react-scripts", "webpack", "parcel", "next"}

// packageManifest is the subset of package.json the classifier needs.
type packageManifest struct {
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DetectCapabilities inspects a file set and reports the capability set the
// app type is classified from.
func DetectCapabilities(files model.FileSet) model.Capabilities {
	var caps model.Capabilities

	for p := range files {
		switch path.Clean(p) {
		case "server.js", "app.js", "index.js", "server/index.js", "src/server.js":
			caps.HasServerEntryPoint = true
		}
	}

	raw, ok := files[ManifestFile]
	if !ok {
		return caps
	}
	var manifest packageManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return caps
	}

	deps := make(map[string]bool, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for d := range manifest.Dependencies {
		deps[d] = true
	}
	for d := range manifest.DevDependencies {
		deps[d] = true
	}

	for _, fw := range webFrameworks {
		if deps[fw] {
			caps.HasWebFrameworkDependency = true
			break
		}
	}
	for _, tool := range frontendBuildTools {
		if deps[tool] {
			caps.HasFrontendBuildTool = true
			break
		}
	}
	if _, ok := manifest.Scripts["build"]; ok {
		caps.HasFrontendBuildTool = true
	}

	return caps
}

// Classify maps a capability set to an app type.
func Classify(caps model.Capabilities) model.AppType {
	hasBackend := caps.HasServerEntryPoint || caps.HasWebFrameworkDependency
	switch {
	case caps.HasFrontendBuildTool && hasBackend:
		return model.AppTypeFullstack
	case caps.HasFrontendBuildTool:
		return model.AppTypeFrontendOnly
	case hasBackend:
		return model.AppTypeBackendOnly
	default:
		// No build tool and no server: a plain static site.
		return model.AppTypeFrontendOnly
	}
}

// DetectAppType is the composition most callers want.
func DetectAppType(files model.FileSet) model.AppType {
	return Classify(DetectCapabilities(files))
}
