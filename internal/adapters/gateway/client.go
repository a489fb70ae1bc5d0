package gateway

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/cockroachdb/errors"
    "go.uber.org/zap"

    "autovault/internal/domain"
    "autovault/internal/ports"
)

// Client talks to the confidential-compute gateway sidecar, which fronts the
// protection SDK and the workerpool scheduler. It implements both the
// ProtectionProvider and ComputeSubmitter ports.
type Client struct {
    base         string
    http         *http.Client
    pollInterval time.Duration
    log          *zap.Logger
}

func New(base string, log *zap.Logger) *Client {
    return &Client{
        base:         strings.TrimRight(base, "/"),
        http:         &http.Client{Timeout: 2 * time.Minute},
        pollInterval: 3 * time.Second,
        log:          log,
    }
}

// Healthz reports whether the gateway is reachable and on the right network.
func (c *Client) Healthz(ctx context.Context) error {
    var out struct {
        Status string `json:"status"`
    }
    if err := c.getJSON(ctx, "/healthz", &out); err != nil {
        return errors.Wrapf(domain.ErrProviderNotReady, "gateway %s: %v", c.base, err)
    }
    if out.Status != "ok" {
        return errors.Wrapf(domain.ErrProviderNotReady, "gateway status %q", out.Status)
    }
    return nil
}

type protectRequest struct {
    Name string `json:"name"`
    // The protection SDK rejects keys with dots or special characters;
    // everything goes under a single "content" entry.
    Content []byte `json:"content"`
}

func (c *Client) Protect(ctx context.Context, name string, payload []byte) (string, error) {
    var out struct {
        Address string `json:"address"`
    }
    if err := c.postJSON(ctx, "/datasets", protectRequest{Name: name, Content: payload}, &out); err != nil {
        return "", errors.Wrap(err, "protect dataset")
    }
    if out.Address == "" {
        return "", errors.New("gateway returned no dataset address")
    }
    c.log.Info("dataset protected", zap.String("address", out.Address))
    return out.Address, nil
}

func (c *Client) Authorize(ctx context.Context, ref, executor string, accessCount int) (string, error) {
    body := map[string]any{"authorizedApp": executor, "numberOfAccess": accessCount, "pricePerAccess": 0}
    var out struct {
        TxHash string `json:"txHash"`
    }
    if err := c.postJSON(ctx, "/datasets/"+ref+"/grants", body, &out); err != nil {
        return "", errors.Wrap(err, "grant access")
    }
    if out.TxHash == "" {
        // Some grant paths settle off-chain and carry no transaction.
        return "granted", nil
    }
    return out.TxHash, nil
}

type dealRequest struct {
    ProtectedData     string `json:"protectedData"`
    App               string `json:"app"`
    Workerpool        string `json:"workerpool"`
    Category          int    `json:"category"`
    AppMaxPrice       int64  `json:"appMaxPrice"`
    WorkerpoolMaxPrice int64 `json:"workerpoolMaxPrice"`
    Path              string `json:"path"`
}

type taskStatus struct {
    Title     string `json:"title"`
    Scheduled bool   `json:"scheduled"`
    Completed bool   `json:"completed"`
    Failed    bool   `json:"failed"`
    Error     string `json:"error,omitempty"`
}

func (c *Client) Submit(ctx context.Context, ref, executor, workerpool string, prices ports.PriceCeilings, outputPath string, onStatus ports.StatusCallback) (string, error) {
    req := dealRequest{
        ProtectedData:      ref,
        App:                executor,
        Workerpool:         workerpool,
        Category:           0,
        AppMaxPrice:        prices.AppMax,
        WorkerpoolMaxPrice: prices.WorkerpoolMax,
        Path:               outputPath,
    }
    var out struct {
        TaskID string `json:"taskId"`
    }
    if err := c.postJSON(ctx, "/deals", req, &out); err != nil {
        return "", errors.Wrap(err, "submit deal")
    }
    if out.TaskID == "" {
        return "", errors.New("gateway returned no task id")
    }

    // Forward deal-making progress until the task lands on a worker.
    lastTitle := ""
    for {
        st, err := c.task(ctx, out.TaskID)
        if err != nil {
            return "", errors.Wrap(err, "task status")
        }
        if st.Title != "" && st.Title != lastTitle && onStatus != nil {
            onStatus(domain.StatusUpdate{Title: st.Title, At: time.Now().UTC()})
            lastTitle = st.Title
        }
        if st.Failed {
            return "", errors.Newf("deal failed: %s", st.Error)
        }
        if st.Scheduled || st.Completed {
            return out.TaskID, nil
        }
        select {
        case <-ctx.Done():
            return "", ctx.Err()
        case <-time.After(c.pollInterval):
        }
    }
}

func (c *Client) FetchArtifact(ctx context.Context, jobID string) ([]byte, error) {
    for {
        st, err := c.task(ctx, jobID)
        if err != nil {
            return nil, errors.Wrap(err, "task status")
        }
        if st.Failed {
            return nil, errors.Newf("task failed: %s", st.Error)
        }
        if st.Completed {
            break
        }
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(c.pollInterval):
        }
    }
    return c.getBytes(ctx, "/tasks/"+jobID+"/result")
}

func (c *Client) task(ctx context.Context, id string) (taskStatus, error) {
    var st taskStatus
    err := c.getJSON(ctx, "/tasks/"+id, &st)
    return st, err
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
    return postJSON(ctx, c.http, c.base+path, body, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
    return getJSON(ctx, c.http, c.base+path, out)
}

func (c *Client) getBytes(ctx context.Context, path string) ([]byte, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
    if err != nil {
        return nil, err
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        body, _ := io.ReadAll(resp.Body)
        return nil, fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(body))
    }
    return io.ReadAll(resp.Body)
}

func postJSON(ctx context.Context, hc *http.Client, url string, body, out any) error {
    data, err := json.Marshal(body)
    if err != nil {
        return err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    return do(hc, req, out)
}

func getJSON(ctx context.Context, hc *http.Client, url string, out any) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return err
    }
    return do(hc, req, out)
}

func do(hc *http.Client, req *http.Request, out any) error {
    resp, err := hc.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        body, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(body))
    }
    if out == nil {
        return nil
    }
    return json.NewDecoder(resp.Body).Decode(out)
}
