package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"quotaline/internal/domain"
	"quotaline/internal/engine"
	"quotaline/internal/engine/auth"
	"quotaline/internal/repo"
)

// EventSource reads the audit journal.
type EventSource interface {
	LatestEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error)
}

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Access   auth.Service
	Events   EventSource
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unfinished_task_exists"`
	Message string         `json:"message" example:"admin already has an unfinished task"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"admin_id\":\"4b1c\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Quotaline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Events == nil {
		return nil, errors.New("event source required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// schema validation is a malformed request, not a state problem
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Quotaline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerMe(group, cfg)
	if cfg.Auth.EnableDevLogin {
		registerDevAuth(group, cfg)
	}
	registerAdmins(group, cfg)
	registerTasks(group, cfg)
	registerScan(group, cfg)
	registerTeam(group, cfg)
	registerContent(group, cfg)
	registerEvents(group, cfg)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"permission": fe.Permission})
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), map[string]any{"field": ve.Field})
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		details := map[string]any{"admin_id": ce.AdminID}
		if ce.TaskID != "" {
			details["task_id"] = ce.TaskID
		}
		return newAPIError(http.StatusConflict, "unfinished_task_exists", err.Error(), details)
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kind": nf.Kind, "id": nf.ID})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var ie *domain.InvalidStateError
	if errors.As(err, &ie) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_state", err.Error(), map[string]any{"status": ie.Status, "op": ie.Op})
	}
	var re *domain.RepositoryError
	if errors.As(err, &re) {
		return newAPIError(http.StatusServiceUnavailable, "repository_unavailable", "repository unavailable; retry later", map[string]any{"op": re.Op})
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_state"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// requirePermission resolves the principal and checks their role.
func requirePermission(ctx context.Context, cfg Config, perm string) (string, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return "", authErr
	}
	a, err := cfg.Access.Require(ctx, actorID, perm)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// scanBeforeRead keeps statuses fresh for views. A failed scan does not fail the read.
func scanBeforeRead(ctx context.Context, cfg Config) {
	if _, err := cfg.Engine.ScanAndUpdateOverdueTasks(ctx); err != nil {
		cfg.logger().Warn("overdue scan before read failed", slog.String("error", err.Error()))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var doc []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if doc == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			doc, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	public := map[string]bool{
		path.Join("/", basePath, "health"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if public[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Quotaline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusServiceUnavailable,
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current admin and permissions",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		principal, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		a, err := cfg.Access.ResolveActor(ctx, principal.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{
			AdminID:     a.ID,
			Name:        a.Name,
			Role:        string(a.Role),
			Permissions: nonNilSlice(cfg.Access.Permissions(a.Role)),
			Source:      principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Description: "Callers may mint a token for themselves. Minting one for another admin requires admin.write.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		adminID := strings.TrimSpace(input.Body.AdminID)
		if adminID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "admin_id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if adminID != actorID {
			if err := cfg.Access.RequireAdminWrite(ctx, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		if _, err := cfg.Engine.GetAdmin(ctx, adminID); err != nil {
			return nil, handleError(err)
		}
		token, err := signDevToken(cfg.Auth.JWTSecret, adminID, time.Now(), cfg.Auth.ttl())
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

type adminPath struct {
	AdminID string `path:"admin_id"`
}

type taskPath struct {
	AdminID string `path:"admin_id"`
	TaskID  string `path:"task_id"`
}

func registerAdmins(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-admins",
		Method:      http.MethodGet,
		Path:        "/admins",
		Summary:     "List admins with their task history",
		Errors:      []int{http.StatusForbidden, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []AdminResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		admins, err := cfg.Engine.ListAdmins(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AdminResponse `json:"body"`
		}{Body: mapAdmins(admins)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-admin",
		Method:        http.MethodPost,
		Path:          "/admins",
		Summary:       "Add admin",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAdminRequest `json:"body"`
	}) (*struct {
		Body AdminResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := cfg.Access.RequireAdminWrite(ctx, actorID); err != nil {
			return nil, handleError(err)
		}
		a, err := cfg.Engine.AddAdmin(ctx, input.Body.Name, domain.Role(input.Body.Role), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AdminResponse `json:"body"`
		}{Body: adminResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-admin-profile",
		Method:      http.MethodGet,
		Path:        "/admins/{admin_id}",
		Summary:     "Admin profile with current task, progress and score",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *adminPath) (*struct {
		Body ProfileResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		scanBeforeRead(ctx, cfg)
		p, err := cfg.Engine.AdminProfile(ctx, input.AdminID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProfileResponse `json:"body"`
		}{Body: profileResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-admin-score",
		Method:      http.MethodGet,
		Path:        "/admins/{admin_id}/score",
		Summary:     "Performance score breakdown",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *adminPath) (*struct {
		Body domain.ScoreBreakdown `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		scanBeforeRead(ctx, cfg)
		score, err := cfg.Engine.ComputeScore(ctx, input.AdminID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ScoreBreakdown `json:"body"`
		}{Body: score}, nil
	})
}

func registerTasks(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "assign-task",
		Method:        http.MethodPost,
		Path:          "/admins/{admin_id}/tasks",
		Summary:       "Assign a task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		AdminID string            `path:"admin_id"`
		Body    AssignTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, err := requirePermission(ctx, cfg, auth.PermTaskAssign)
		if err != nil {
			return nil, handleError(err)
		}
		task, err := cfg.Engine.AssignTask(ctx, input.AdminID, input.Body.draft(), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/admins/{admin_id}/tasks",
		Summary:     "Task history in assignment order",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *adminPath) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		tasks, err := cfg.Engine.Tasks(ctx, input.AdminID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: nonNilSlice(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-progress",
		Method:      http.MethodGet,
		Path:        "/admins/{admin_id}/tasks/{task_id}/progress",
		Summary:     "Derived task progress",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Progress `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		p, err := cfg.Engine.TaskProgress(ctx, input.AdminID, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Progress `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-task",
		Method:      http.MethodPost,
		Path:        "/admins/{admin_id}/tasks/{task_id}/cancel",
		Summary:     "Cancel an unfinished task",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		actorID, err := requirePermission(ctx, cfg, auth.PermTaskCancel)
		if err != nil {
			return nil, handleError(err)
		}
		if err := cfg.Engine.CancelTask(ctx, input.AdminID, input.TaskID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/admins/{admin_id}/tasks/{task_id}/complete",
		Summary:     "Mark an active task completed",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		AdminID string              `path:"admin_id"`
		TaskID  string              `path:"task_id"`
		Body    CompleteTaskRequest `json:"body,omitempty" required:"false"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, err := requirePermission(ctx, cfg, auth.PermTaskComplete)
		if err != nil {
			return nil, handleError(err)
		}
		task, err := cfg.Engine.CompleteTask(ctx, input.AdminID, input.TaskID, input.Body.Force, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-item",
		Method:      http.MethodPut,
		Path:        "/admins/{admin_id}/tasks/{task_id}/items/{index}",
		Summary:     "Check or uncheck a todo item",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		AdminID string            `path:"admin_id"`
		TaskID  string            `path:"task_id"`
		Index   int               `path:"index"`
		Body    ToggleItemRequest `json:"body"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := cfg.Access.RequireToggle(ctx, actorID, input.AdminID); err != nil {
			return nil, handleError(err)
		}
		if err := cfg.Engine.ToggleTodoItem(ctx, input.AdminID, input.TaskID, input.Index, input.Body.Completed, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerScan(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "scan-overdue",
		Method:      http.MethodPost,
		Path:        "/scan",
		Summary:     "Demote expired active tasks to incompleted",
		Errors:      []int{http.StatusForbidden, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ScanResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTaskScan); err != nil {
			return nil, handleError(err)
		}
		n, err := cfg.Engine.ScanAndUpdateOverdueTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ScanResponse `json:"body"`
		}{Body: ScanResponse{Updated: n}}, nil
	})
}

func registerTeam(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "team-scores",
		Method:      http.MethodGet,
		Path:        "/team",
		Summary:     "Admins ranked by performance score",
		Errors:      []int{http.StatusForbidden, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.TeamEntry `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		scanBeforeRead(ctx, cfg)
		team, err := cfg.Engine.TeamScores(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TeamEntry `json:"body"`
		}{Body: team}, nil
	})
}

func registerContent(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "import-content",
		Method:        http.MethodPost,
		Path:          "/content",
		Summary:       "Import content records",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body ImportContentRequest `json:"body"`
	}) (*struct {
		Body ImportContentResponse `json:"body"`
	}, error) {
		actorID, err := requirePermission(ctx, cfg, auth.PermContentWrite)
		if err != nil {
			return nil, handleError(err)
		}
		n, err := cfg.Engine.ImportContent(ctx, input.Body.Records, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ImportContentResponse `json:"body"`
		}{Body: ImportContentResponse{Imported: n}}, nil
	})
}

func registerEvents(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent journal events",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type"`
		AdminID  string `query:"admin_id"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, cfg, auth.PermTeamRead); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := cfg.Events.LatestEvents(ctx, repo.EventFilters{
			Type:     input.Type,
			AdminID:  input.AdminID,
			EntityID: input.EntityID,
			BeforeID: cursorID,
			Limit:    limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
