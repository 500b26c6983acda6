// Package cas is the HTTP client for the content-addressed storage node
// (C2): the IPFS/Kubo-shaped RPC surface the gateway depends on to store
// and retrieve object bytes, and to maintain the MFS tree mirrored by the
// path normalizer.
//
// No Go client for this RPC surface appears anywhere in the retrieved
// corpus, so this talks to the documented HTTP RPC API directly with
// net/http and mime/multipart, the way the Rust prototype's ipfs.rs talks
// to it through its own HTTP client.
package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Credentials is the optional HTTP basic auth the RPC endpoint requires.
type Credentials struct {
	Username string
	Password string
}

// LogValue redacts the password from structured log output, mirroring the
// prototype's manual Debug redaction of RpcCredentials.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "REDACTED"),
	)
}

// Client talks to the CAS node's RPC API.
type Client struct {
	baseURL     string
	credentials *Credentials
	http        *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets HTTP basic auth credentials for every RPC call.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.credentials = &creds }
}

// WithHTTPClient overrides the underlying *http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client against rpcAddress, e.g.
// "http://localhost:5001/api/v0".
func New(rpcAddress string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(rpcAddress, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error wraps a non-2xx response from the RPC node, distinguishing a
// remote-reported RPC error from a transport failure (a timeout, a
// connection refusal, a non-HTTP response never reaches this type).
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cas: %s: rpc error (status %d): %s", e.Op, e.Status, e.Message)
}

func (c *Client) newRequest(ctx context.Context, method, op string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + "/" + op
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("cas: %s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.credentials != nil {
		req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cas: %s: transport: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: string(msg)}
	}
	return resp, nil
}

// addResponse is the shape of a Kubo "add" RPC response line.
type addResponse struct {
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add streams content to the node's "add" RPC and returns the resulting
// CID. It POSTs a single-file multipart/form-data body, the shape the
// Kubo HTTP RPC API documents for this endpoint.
func (c *Client) Add(ctx context.Context, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "file")
	if err != nil {
		return "", fmt.Errorf("cas: add: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("cas: add: read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("cas: add: close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "add", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	resp, err := c.do(req, "add")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cas: add: decode response: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("cas: add: empty hash in response")
	}
	return out.Hash, nil
}

// FilesCp copies /ipfs/{cid} into the MFS tree at destPath, creating
// parent directories and overwriting any existing entry. The Add+FilesCp
// pair is always issued together by the object service: content is
// pinned into the node's blockstore by add, then given a stable name in
// the mutable filesystem so it can be found, replaced, or removed by
// path later.
func (c *Client) FilesCp(ctx context.Context, cid, destPath string) error {
	query := url.Values{
		"arg":     []string{"/ipfs/" + cid, destPath},
		"parents": []string{"true"},
		"force":   []string{"true"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, "files/cp", query, nil, "")
	if err != nil {
		return err
	}
	resp, err := c.do(req, "files/cp")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Cat streams the content addressed by cid. The caller must close the
// returned reader.
func (c *Client) Cat(ctx context.Context, cid string) (io.ReadCloser, error) {
	query := url.Values{"arg": []string{cid}}
	req, err := c.newRequest(ctx, http.MethodPost, "cat", query, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "cat")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// FilesRm recursively removes path from the MFS tree.
func (c *Client) FilesRm(ctx context.Context, mfsPath string) error {
	query := url.Values{
		"arg":       []string{mfsPath},
		"recursive": []string{"true"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, "files/rm", query, nil, "")
	if err != nil {
		return err
	}
	resp, err := c.do(req, "files/rm")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// PinRm recursively unpins cid, allowing the node's garbage collector to
// reclaim the underlying blocks.
func (c *Client) PinRm(ctx context.Context, cid string) error {
	query := url.Values{
		"arg":       []string{cid},
		"recursive": []string{"true"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, "pin/rm", query, nil, "")
	if err != nil {
		return err
	}
	resp, err := c.do(req, "pin/rm")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// VersionInfo is the node's self-reported version, used for the health
// probe.
type VersionInfo struct {
	Version string `json:"Version"`
	Commit  string `json:"Commit"`
}

// Version pings the node and reports its version/commit.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "version", nil, nil, "")
	if err != nil {
		return VersionInfo{}, err
	}
	resp, err := c.do(req, "version")
	if err != nil {
		return VersionInfo{}, err
	}
	defer resp.Body.Close()

	var out VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VersionInfo{}, fmt.Errorf("cas: version: decode response: %w", err)
	}
	return out, nil
}
