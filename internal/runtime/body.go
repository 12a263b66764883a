package runtime

import (
	"io"
	"net/http"
	"sync"
)

// onceBody forwards Close to the wrapped body at most once, so the transport
// closing a request body and the engine releasing it collapse into one release.
type onceBody struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (b *onceBody) Close() error {
	b.once.Do(func() {
		b.err = b.ReadCloser.Close()
	})
	return b.err
}

func guardRequestBody(req *http.Request) *onceBody {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	b := &onceBody{ReadCloser: req.Body}
	req.Body = b
	return b
}

func guardResponseBody(resp *http.Response) *onceBody {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	b := &onceBody{ReadCloser: resp.Body}
	resp.Body = b
	return b
}
