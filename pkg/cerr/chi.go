package cerr

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// reply collects what a handler wants written. Handlers never touch the
// ResponseWriter themselves; the chi middleware renders the reply as JSON.
type reply struct {
	status int
	body   any
	err    error
	set    bool
}

type replyKey struct{}

func replyFrom(ctx context.Context) *reply {
	r, _ := ctx.Value(replyKey{}).(*reply)
	return r
}

func (r *reply) succeed(status int, body any) {
	r.status, r.body, r.err, r.set = status, body, nil, true
}

func (r *reply) fail(err error) {
	r.status, r.body, r.err, r.set = 0, nil, err, true
}

func SetJSONResponse(ctx context.Context, response any) {
	SetJSONResponseWithStatus(ctx, http.StatusOK, response)
}

func SetJSONResponseWithStatus(ctx context.Context, status int, response any) {
	if r := replyFrom(ctx); r != nil {
		r.succeed(status, response)
	}
}

func SetJSONError(ctx context.Context, err error) {
	if r := replyFrom(ctx); r != nil {
		r.fail(err)
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewJSONResponseChiMiddleware renders the reply recorded through the Set
// functions once the handler returns. A handler that neither records a reply
// nor writes to the response gets 204 No Content.
func NewJSONResponseChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			r := &reply{}
			ctx := context.WithValue(req.Context(), replyKey{}, r)
			ww := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			next.ServeHTTP(ww, req.WithContext(ctx))
			switch {
			case !r.set && ww.Status() != 0:
			case !r.set:
				rw.WriteHeader(http.StatusNoContent)
			case r.err != nil:
				WriteError(ctx, rw, r.err)
			default:
				writeJSON(ctx, rw, r.status, r.body)
			}
		})
	}
}
