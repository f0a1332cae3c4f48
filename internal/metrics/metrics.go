package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_posts_created_total",
		Help: "The total number of created posts.",
	})

	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_posts_deleted_total",
		Help: "The total number of posts deleted with their comments and likes.",
	})

	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_post_views_total",
		Help: "The total number of counted post views.",
	})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_comments_created_total",
		Help: "The total number of created comments.",
	})

	CommentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_comments_deleted_total",
		Help: "The total number of deleted comments.",
	})

	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_likes_toggled_total",
		Help: "The total number of like toggles by target kind and resulting state.",
	}, []string{"kind", "liked"})

	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_searches_total",
		Help: "The total number of searches by field.",
	}, []string{"field"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "noticeboard_http_request_duration_seconds",
		Help:    "HTTP request duration by route pattern and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler отдает метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware измеряет длительность запросов по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
