package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi/s3rest"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi/snsxml"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi/sqsjson"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
	"github.com/chris-alexander-pop/cloudstub/internal/publisher"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
)

// Deps carries the core components the three protocol frontends share.
type Deps struct {
	Queues    *registry.QueueRegistry
	Topics    *registry.TopicRegistry
	Publisher *publisher.Publisher
	Objects   *objectstore.Store
	Endpoints awsproto.Endpoints
}

// NewServer wires one echo.Echo instance over all three protocol frontends
// (spec.md §6, "HTTP surface"): AmazonSQS.* JSON actions and SNS query
// actions both arrive as POST /, distinguished by content-type/header;
// everything else is routed to the S3 REST frontend.
func NewServer(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("cloudstub"))
	e.Use(middleware.Recover())

	sqs := &sqsjson.Handler{Queues: deps.Queues, Endpoints: deps.Endpoints}
	sns := &snsxml.Handler{Topics: deps.Topics, Publisher: deps.Publisher, Endpoints: deps.Endpoints}
	s3 := &s3rest.Handler{Store: deps.Objects}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/", func(c echo.Context) error {
		rewriteVirtualHost(c)
		if target := c.Request().Header.Get("x-amz-target"); target != "" {
			return sqs.Route(c)
		}
		contentType := c.Request().Header.Get("Content-Type")
		if strings.Contains(contentType, "application/x-www-form-urlencoded") || strings.Contains(contentType, "multipart/form-data") {
			return sns.Route(c)
		}
		return s3.RouteBucket(c)
	})

	objectVerbs := []string{http.MethodGet, http.MethodPut, http.MethodHead, http.MethodDelete, http.MethodPost}
	for _, m := range objectVerbs {
		e.Add(m, "/*", func(c echo.Context) error {
			rewriteVirtualHost(c)
			return s3.RouteObject(c)
		})
	}

	return e
}

// rewriteVirtualHost turns a virtual-hosted-style request
// (Host: <bucket>.s3.<region>.amazonaws.com or <bucket>.s3.amazonaws.com)
// into path-style (/<bucket>/<key>) before routing, since the object store
// and s3rest package only ever reason in path-style terms (spec.md §6).
func rewriteVirtualHost(c echo.Context) {
	host := c.Request().Host
	if i := strings.Index(host, "."); i < 0 || !strings.Contains(host, ".s3") {
		return
	}
	bucket, rest, ok := strings.Cut(host, ".s3")
	if !ok || bucket == "" || strings.ContainsAny(bucket, ":/") {
		return
	}
	_ = rest
	r := c.Request()
	r.URL.Path = "/" + bucket + r.URL.Path
}
