package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"assetapi/internal/service"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Asset API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when metadata is not kept in Postgres.
func RegisterRoutes(app *fiber.App, db *sql.DB, assetSvc service.AssetService) {
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.Type("html").SendString(docsPage)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	assets := app.Group("/api/assets")
	assets.Post("/upload", UploadAsset(assetSvc))
	assets.Get("", ListAssets(assetSvc))
	assets.Get("/:id/download", DownloadAsset(assetSvc))
	assets.Delete("/:id", DeleteAsset(assetSvc))
}
