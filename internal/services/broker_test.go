package services_test

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// fakeBroker is a minimal management API double: canned GET responses keyed
// by escaped path, recorded PUTs, optional per-path PUT failures.
type fakeBroker struct {
	ts *httptest.Server

	mu       sync.Mutex
	getBody  map[string]string
	failPut  map[string]int
	puts     []recordedPut
	getPaths []string
}

type recordedPut struct {
	Path string
	Body string
}

func newFakeBroker() *fakeBroker {
	b := &fakeBroker{
		getBody: map[string]string{
			"/api/overview":         `{"rabbitmq_version":"3.12.0"}`,
			"/api/exchanges":        `[{"name":"fed.topic","vhost":"/","type":"x-federation-upstream"}]`,
			"/api/federation-links": `[]`,
		},
		failPut: map[string]int{},
	}
	b.ts = httptest.NewServer(http.HandlerFunc(b.handle))
	DeferCleanup(b.ts.Close)
	return b
}

func (b *fakeBroker) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := r.URL.EscapedPath()
	switch r.Method {
	case http.MethodGet:
		b.getPaths = append(b.getPaths, path)
		if body, ok := b.getBody[path]; ok {
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Object Not Found"}`))
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.puts = append(b.puts, recordedPut{Path: path, Body: string(body)})
		if status, ok := b.failPut[path]; ok {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"bad_request"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBroker) serve(path, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getBody[path] = body
}

func (b *fakeBroker) failPutWith(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPut[path] = status
}

func (b *fakeBroker) recordedPuts() []recordedPut {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedPut(nil), b.puts...)
}

func (b *fakeBroker) recordedGets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.getPaths...)
}

func (b *fakeBroker) endpoint(vhost string) rabbit.Endpoint {
	GinkgoHelper()
	u, err := url.Parse(b.ts.URL)
	Expect(err).NotTo(HaveOccurred())
	host, port, err := net.SplitHostPort(u.Host)
	Expect(err).NotTo(HaveOccurred())
	return rabbit.Endpoint{Host: host, Port: port, Username: "admin", Password: "secret", Vhost: vhost}
}
