package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// page is one terminal page of the redirect path.
type page struct {
	Status  int
	Icon    string
	Title   string
	Message string
}

var (
	pageNotFound = page{http.StatusNotFound, "🔍", "Link not found",
		"This short link does not exist. Check the address for typos."}
	pageExpired = page{http.StatusGone, "⌛", "Link expired",
		"This short link is no longer active."}
	pageLimitReached = page{http.StatusGone, "🚫", "Link limit reached",
		"This short link has been used the maximum number of times."}
	pageError = page{http.StatusInternalServerError, "⚠️", "Something went wrong",
		"We could not follow this link right now. Please try again in a moment."}
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 50%, #0f3460 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #fff;
        }
        .card {
            max-width: 480px;
            width: 90%;
            padding: 40px;
            text-align: center;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 20px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            box-shadow: 0 25px 50px -12px rgba(0, 0, 0, 0.5);
        }
        .icon { font-size: 3rem; margin-bottom: 16px; }
        h1 {
            font-size: 1.8rem;
            margin-bottom: 12px;
            background: linear-gradient(90deg, #00d2ff, #3a7bd5);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            background-clip: text;
        }
        p { color: #94a3b8; line-height: 1.5; }
        .status { margin-top: 24px; color: #475569; font-size: 0.85rem; }
    </style>
</head>
<body>
    <div class="card">
        <div class="icon">{{.Icon}}</div>
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
        <p class="status">{{.Status}}</p>
    </div>
</body>
</html>`))

// PagesHandler renders the terminal pages of the redirect path.
type PagesHandler struct{}

// NewPagesHandler creates a new pages handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) NotFound(c *gin.Context)     { renderPage(c, pageNotFound) }
func (h *PagesHandler) Expired(c *gin.Context)      { renderPage(c, pageExpired) }
func (h *PagesHandler) LimitReached(c *gin.Context) { renderPage(c, pageLimitReached) }
func (h *PagesHandler) Error(c *gin.Context)        { renderPage(c, pageError) }

func renderPage(c *gin.Context, p page) {
	c.Render(p.Status, render.HTML{Template: pageTemplate, Data: p})
}
