package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/utils"
	"github.com/dmvelichko/refsync/models"
)

// ClientConfig holds the settings needed to talk to the library service.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type httpClient struct {
	client *resty.Client
	apiKey string
	logger *logger.Logger
}

// NewHTTPClient constructs the resty-backed implementation of [Client].
// The base URL is normalised (trailing slash stripped) and a default
// timeout is applied when cfg.Timeout is unset.
func NewHTTPClient(cfg ClientConfig, log *logger.Logger) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &httpClient{client: cli, apiKey: cfg.APIKey, logger: log}
}

func (h *httpClient) request(ctx context.Context) *resty.Request {
	req := h.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+h.apiKey)
	if traceID, ok := utils.GetTraceIDFromContext(ctx); ok {
		req.SetHeader("X-Trace-Id", traceID)
	}
	return req
}

func (h *httpClient) Groups(ctx context.Context, userID int64) ([]models.Library, error) {
	resp, err := h.request(ctx).Get(fmt.Sprintf("/users/%d/groups", userID))
	if err != nil {
		return nil, wrapTransport("groups request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var wire []wireGroup
	if err = json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, fmt.Errorf("decode groups response: %w", err)
	}

	libs := make([]models.Library, 0, len(wire))
	for _, g := range wire {
		libs = append(libs, g.toLibrary())
	}
	return libs, nil
}

func (h *httpClient) Fetch(ctx context.Context, library models.LibraryIdentifier, typ models.ObjectType, since int) (models.ObjectBatch, error) {
	path, err := fetchPath(library, typ)
	if err != nil {
		return models.ObjectBatch{}, err
	}

	resp, err := h.request(ctx).
		SetHeader("If-Modified-Since-Version", strconv.Itoa(since)).
		SetQueryParam("since", strconv.Itoa(since)).
		Get(path)
	if err != nil {
		return models.ObjectBatch{}, wrapTransport("fetch request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ObjectBatch{}, err
	}

	version, err := lastModifiedVersion(resp)
	if err != nil {
		return models.ObjectBatch{}, err
	}

	batch := models.ObjectBatch{LibraryID: library, Type: typ, Version: version}
	if err = decodeBatch(resp.Body(), library, &batch); err != nil {
		return models.ObjectBatch{}, err
	}

	return batch, nil
}

func (h *httpClient) Deletions(ctx context.Context, library models.LibraryIdentifier, since int) (models.DeletedKeys, int, error) {
	resp, err := h.request(ctx).
		SetHeader("If-Modified-Since-Version", strconv.Itoa(since)).
		SetQueryParam("since", strconv.Itoa(since)).
		Get("/" + library.APIPath() + "/deleted")
	if err != nil {
		return models.DeletedKeys{}, 0, wrapTransport("deletions request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.DeletedKeys{}, 0, err
	}

	version, err := lastModifiedVersion(resp)
	if err != nil {
		return models.DeletedKeys{}, 0, err
	}

	var deleted models.DeletedKeys
	if err = json.Unmarshal(resp.Body(), &deleted); err != nil {
		return models.DeletedKeys{}, 0, fmt.Errorf("decode deletions response: %w", err)
	}

	return deleted, version, nil
}

func (h *httpClient) WriteObjects(ctx context.Context, library models.LibraryIdentifier, items []models.Item, ifUnmodifiedSince int) (int, error) {
	wire := make([]wireItem, 0, len(items))
	for _, it := range items {
		wire = append(wire, itemToWire(it))
	}

	resp, err := h.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("If-Unmodified-Since-Version", strconv.Itoa(ifUnmodifiedSince)).
		SetBody(wire).
		Post("/" + library.APIPath() + "/items")
	if err != nil {
		return 0, wrapTransport("write objects request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}

	return lastModifiedVersion(resp)
}

func (h *httpClient) DownloadAttachment(ctx context.Context, library models.LibraryIdentifier, key string) (io.ReadCloser, int64, error) {
	resp, err := h.request(ctx).
		SetDoNotParseResponse(true).
		Get(fmt.Sprintf("/%s/items/%s/file", library.APIPath(), key))
	if err != nil {
		return nil, 0, wrapTransport("download request", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.RawBody(), 4096))
		_ = resp.RawBody().Close()
		return nil, 0, statusError(resp.StatusCode(), string(body))
	}

	length := int64(-1)
	if cl := resp.Header().Get("Content-Length"); cl != "" {
		if parsed, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil {
			length = parsed
		}
	}

	return resp.RawBody(), length, nil
}

func (h *httpClient) AuthorizeUpload(ctx context.Context, library models.LibraryIdentifier, att models.Attachment, size int64) (UploadAuthorization, error) {
	resp, err := h.request(ctx).
		SetHeader("If-Match", att.MD5).
		SetFormData(map[string]string{
			"md5":      att.MD5,
			"filename": att.Filename,
			"filesize": strconv.FormatInt(size, 10),
			"mtime":    strconv.FormatInt(att.MTime, 10),
		}).
		Post(fmt.Sprintf("/%s/items/%s/file", library.APIPath(), att.Key))
	if err != nil {
		return UploadAuthorization{}, wrapTransport("authorize upload request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return UploadAuthorization{}, err
	}

	var wire struct {
		Exists int `json:"exists"`
		UploadAuthorization
	}
	if err = json.Unmarshal(resp.Body(), &wire); err != nil {
		return UploadAuthorization{}, fmt.Errorf("decode upload authorization: %w", err)
	}
	if wire.Exists == 1 {
		return UploadAuthorization{}, ErrUploadExists
	}

	return wire.UploadAuthorization, nil
}

func (h *httpClient) UploadMultipart(ctx context.Context, auth UploadAuthorization, file io.Reader) error {
	req := h.client.R().
		SetContext(ctx).
		SetFileReader("file", "file", file)
	for k, v := range auth.Params {
		req.SetFormData(map[string]string{k: v})
	}

	resp, err := req.Post(auth.URL)
	if err != nil {
		return wrapTransport("multipart upload request", err)
	}

	return mapHTTPError(resp)
}

func (h *httpClient) RegisterUpload(ctx context.Context, library models.LibraryIdentifier, key string, auth UploadAuthorization) (int, error) {
	resp, err := h.request(ctx).
		SetFormData(map[string]string{"upload": auth.UploadKey}).
		Post(fmt.Sprintf("/%s/items/%s/file", library.APIPath(), key))
	if err != nil {
		return 0, wrapTransport("register upload request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}

	return lastModifiedVersion(resp)
}

func fetchPath(library models.LibraryIdentifier, typ models.ObjectType) (string, error) {
	var suffix string
	switch typ {
	case models.ObjectCollection:
		suffix = "collections"
	case models.ObjectSearch:
		suffix = "searches"
	case models.ObjectItem:
		suffix = "items"
	default:
		return "", fmt.Errorf("object type %q is not fetchable", typ)
	}
	return "/" + library.APIPath() + "/" + suffix, nil
}

// lastModifiedVersion parses the Last-Modified-Version header. A missing
// or malformed header on a versioned response is a protocol violation.
func lastModifiedVersion(resp *resty.Response) (int, error) {
	raw := resp.Header().Get("Last-Modified-Version")
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("malformed Last-Modified-Version header %q: %w", raw, err)
	}
	return version, nil
}

// mapHTTPError translates response status codes into the client's error
// taxonomy. 2xx responses map to nil.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}
	return statusError(code, strings.TrimSpace(string(resp.Body())))
}

func statusError(code int, body string) error {
	switch code {
	case http.StatusNotModified:
		return ErrNotModified
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusPreconditionFailed:
		return &PreconditionError{Body: []byte(body)}
	}
	if body == "" {
		body = http.StatusText(code)
	}
	return &NetworkError{Code: code, Body: body}
}

// wrapTransport converts a transport-level resty error (timeout, refused
// connection) into a retryable NetworkError with code 0.
func wrapTransport(op string, err error) error {
	return fmt.Errorf("%s: %w", op, &NetworkError{Body: err.Error()})
}
