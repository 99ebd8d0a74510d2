package router

import (
	"go-task-api/common"
	"go-task-api/handler"
	"net/http"

	_ "go-task-api/docs" // swagger document

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultMaxBodyBytes = 1 << 20

// Options holds the handlers and middleware settings the route table needs.
type Options struct {
	Users    *handler.UserHandler
	Projects *handler.ProjectHandler
	Tasks    *handler.TaskHandler
	Health   *handler.HealthHandler

	Verifier       handler.AccessVerifier
	RefreshLimiter *handler.RateLimiter

	CORSOrigins  []string
	MaxBodyBytes int64
	ServiceName  string
}

type appHandler = func(http.ResponseWriter, *http.Request) *common.AppError

func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	health := opts.Health
	if health == nil {
		health = handler.NewHealthHandler(nil)
	}
	mux.HandleFunc("GET /health", health.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	public := func(h appHandler) http.Handler { return handler.ErrorHandlingMiddleware(h) }
	protected := func(h appHandler) http.Handler {
		return handler.AuthMiddleware(opts.Verifier)(handler.ErrorHandlingMiddleware(h))
	}
	optional := func(h appHandler) http.Handler {
		return handler.OptionalAuthMiddleware(opts.Verifier)(handler.ErrorHandlingMiddleware(h))
	}

	if u := opts.Users; u != nil {
		refresh := public(u.RefreshToken)
		if opts.RefreshLimiter != nil {
			refresh = opts.RefreshLimiter.Middleware(refresh)
		}

		mux.Handle("POST /api/users/register", public(u.Register))
		mux.Handle("POST /api/users/login", public(u.Login))
		mux.Handle("POST /api/users/refreshToken", refresh)
		mux.Handle("POST /api/users/logout", protected(u.Logout))
		mux.Handle("GET /api/users/me", protected(u.GetCurrentUser))
		mux.Handle("PATCH /api/users/me", protected(u.UpdateAccount))
		mux.Handle("POST /api/users/me/avatar", protected(u.UploadAvatar))
		mux.Handle("PUT /api/users/me/avatar", protected(u.ConfirmAvatar))
		mux.Handle("POST /api/users/change-password", protected(u.ChangePassword))
		mux.Handle("GET /api/users/{userId}", optional(u.GetUserProfile))
	}

	if p := opts.Projects; p != nil {
		mux.Handle("POST /api/projects", protected(p.CreateProject))
		mux.Handle("GET /api/projects", protected(p.ListProjects))
		mux.Handle("GET /api/projects/{projectId}", protected(p.GetProject))
		mux.Handle("PUT /api/projects/{projectId}", protected(p.UpdateProject))
		mux.Handle("DELETE /api/projects/{projectId}", protected(p.DeleteProject))
	}

	if t := opts.Tasks; t != nil {
		mux.Handle("POST /api/task", protected(t.CreateTask))
		mux.Handle("GET /api/task", protected(t.ListTasks))
		mux.Handle("GET /api/task/stats", protected(t.GetTaskStats))
		mux.Handle("GET /api/task/project/{projectId}", protected(t.ListProjectTasks))
		mux.Handle("GET /api/task/{taskId}", protected(t.GetTask))
		mux.Handle("PUT /api/task/{taskId}", protected(t.UpdateTask))
		mux.Handle("PATCH /api/task/{taskId}/status", protected(t.UpdateTaskStatus))
		mux.Handle("DELETE /api/task/{taskId}", protected(t.DeleteTask))
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "go-task-api"
	}

	var h http.Handler = mux
	h = handler.BodyLimit(maxBody)(h)
	h = handler.CORS(opts.CORSOrigins)(h)
	h = handler.RequestLogger(h)
	return otelhttp.NewHandler(h, serviceName)
}
