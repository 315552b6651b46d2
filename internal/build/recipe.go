package build

import (
	"fmt"
	"path"

	"appforge/internal/buildplan"
	"appforge/internal/domain/model"
	"appforge/pkg/template"
)

// Recipes are multi-stage so the dependency layer, the build layer and the
// minimal runtime layer can be cached independently across builds of the
// same app. That caching is the reason app-type detection and tier selection
// exist at all.

const backendRecipe = `FROM node:${NODE_VERSION:-20}-alpine AS deps
WORKDIR /app
COPY package*.json ./
RUN npm install --omit=dev

FROM node:${NODE_VERSION:-20}-alpine
WORKDIR /app
COPY --from=deps /app/node_modules ./node_modules
COPY . .
EXPOSE ${APP_PORT}
CMD ["node", "${ENTRYPOINT}"]
`

const frontendRecipe = `FROM node:${NODE_VERSION:-20}-alpine AS deps
WORKDIR /app
COPY package*.json ./
RUN npm install

FROM deps AS build
COPY . .
RUN npm run build

FROM nginx:alpine
COPY --from=build /app/${BUILD_DIR:-dist} /usr/share/nginx/html
EXPOSE 80
`

const staticRecipe = `FROM nginx:alpine
COPY . /usr/share/nginx/html
EXPOSE 80
`

const fullstackRecipe = `FROM node:${NODE_VERSION:-20}-alpine AS deps
WORKDIR /app
COPY package*.json ./
RUN npm install

FROM deps AS build
COPY . .
RUN npm run build

FROM node:${NODE_VERSION:-20}-alpine
WORKDIR /app
COPY --from=deps /app/node_modules ./node_modules
COPY . .
COPY --from=build /app/${BUILD_DIR:-dist} ./${BUILD_DIR:-dist}
EXPOSE ${APP_PORT}
CMD ["node", "${ENTRYPOINT}"]
`

// Recipe materializes the Dockerfile content for an app type and file set.
func Recipe(appType model.AppType, files model.FileSet) (string, error) {
	vars := map[string]string{
		"APP_PORT":   fmt.Sprintf("%d", appType.ContainerPort()),
		"ENTRYPOINT": serverEntryPoint(files),
	}

	switch appType {
	case model.AppTypeBackendOnly:
		return template.Substitute(backendRecipe, vars)
	case model.AppTypeFrontendOnly:
		if _, ok := files[buildplan.ManifestFile]; !ok {
			// Plain static site, nothing to install or build.
			return staticRecipe, nil
		}
		return template.Substitute(frontendRecipe, vars)
	case model.AppTypeFullstack:
		return template.Substitute(fullstackRecipe, vars)
	default:
		return "", fmt.Errorf("unknown app type %q", appType)
	}
}

// serverEntryPoint picks the server entry file the runtime layer should
// execute.
func serverEntryPoint(files model.FileSet) string {
	for _, candidate := range []string{"server.js", "app.js", "index.js"} {
		if _, ok := files[path.Clean(candidate)]; ok {
			return candidate
		}
	}
	return "server.js"
}
