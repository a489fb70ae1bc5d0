package results

import (
    "archive/zip"
    "bytes"
    "encoding/json"
    "io"

    "github.com/cockroachdb/errors"

    "autovault/internal/domain"
)

// The enclave writes its payload at the archive root; some provider stacks
// nest the deterministic output one directory down. Probed in this order.
var payloadPaths = []string{"result.json", "data/result.json"}

// Decode unpacks a result artifact (a zip archive fetched from the provider)
// into the raw provider envelope and the typed pool analysis. A missing
// payload file or a payload without a pool summary is a contract violation by
// the executor and is not retryable.
func Decode(artifact []byte) (*domain.ResultEnvelope, *domain.AnalysisResult, error) {
    zr, err := zip.NewReader(bytes.NewReader(artifact), int64(len(artifact)))
    if err != nil {
        return nil, nil, errors.Wrap(err, "open result archive")
    }

    raw, err := readPayload(zr)
    if err != nil {
        return nil, nil, err
    }

    var envelope domain.ResultEnvelope
    if err := json.Unmarshal(raw, &envelope); err != nil {
        return nil, nil, errors.Wrap(err, "parse result payload")
    }

    // Multi-pool runs wrap the analysis; single-pool payloads are the
    // analysis directly.
    analysisDoc := raw
    if len(envelope.AggregatedPoolAnalysis) > 0 && !bytes.Equal(envelope.AggregatedPoolAnalysis, []byte("null")) {
        analysisDoc = envelope.AggregatedPoolAnalysis
    }

    var probe map[string]json.RawMessage
    if err := json.Unmarshal(analysisDoc, &probe); err != nil {
        return nil, nil, errors.Wrap(err, "parse pool analysis")
    }
    if _, ok := probe["pool_summary"]; !ok {
        return nil, nil, domain.ErrInvalidOutputFormat
    }

    var analysis domain.AnalysisResult
    if err := json.Unmarshal(analysisDoc, &analysis); err != nil {
        return nil, nil, errors.Wrap(err, "decode pool analysis")
    }
    return &envelope, &analysis, nil
}

func readPayload(zr *zip.Reader) ([]byte, error) {
    for _, path := range payloadPaths {
        for _, f := range zr.File {
            if f.Name != path {
                continue
            }
            rc, err := f.Open()
            if err != nil {
                return nil, errors.Wrapf(err, "open %s", path)
            }
            data, err := io.ReadAll(rc)
            rc.Close()
            if err != nil {
                return nil, errors.Wrapf(err, "read %s", path)
            }
            return data, nil
        }
    }
    return nil, domain.ErrResultFileNotFound
}
