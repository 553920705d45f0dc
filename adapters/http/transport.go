package converthttp

import (
	"net/http"

	"github.com/goliatone/go-docexport/convert"
)

// httpResponse adapts http.ResponseWriter to a download stream and records
// whether any body bytes went out.
type httpResponse struct {
	w     http.ResponseWriter
	wrote bool
}

func (res *httpResponse) SetHeader(name, value string) {
	if res.w == nil {
		return
	}
	res.w.Header().Set(name, value)
}

func (res *httpResponse) DelHeader(name string) {
	if res.w == nil {
		return
	}
	res.w.Header().Del(name)
}

func (res *httpResponse) Write(data []byte) (int, error) {
	if res.w == nil {
		return 0, nil
	}
	if len(data) > 0 {
		res.wrote = true
	}
	return res.w.Write(data)
}

var (
	_ convert.Response      = (*httpResponse)(nil)
	_ convert.HeaderDeleter = (*httpResponse)(nil)
)
