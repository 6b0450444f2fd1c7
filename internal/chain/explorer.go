package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// explorerResponse is the etherscan-family getsourcecode payload.
type explorerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
		ABI          string `json:"ABI"`
	} `json:"result"`
}

// explorerClient fetches verified contract source from an etherscan-style
// block explorer API.
type explorerClient struct {
	http *resty.Client
}

func newExplorerClient() *explorerClient {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &explorerClient{http: client}
}

// VerifiedSource returns the verified source text for address, or
// ("", false, nil) when the contract is simply unverified. Network and
// decoding failures are returned as errors so callers can log them.
func (e *explorerClient) VerifiedSource(ctx context.Context, baseURL, apiKey, address string) (string, bool, error) {
	var parsed explorerResponse
	resp, err := e.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":  "contract",
			"action":  "getsourcecode",
			"address": address,
			"apikey":  apiKey,
		}).
		SetResult(&parsed).
		Get(strings.TrimRight(baseURL, "/") + "/api")
	if err != nil {
		return "", false, fmt.Errorf("explorer request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", false, fmt.Errorf("explorer returned status %d", resp.StatusCode())
	}

	// status != "1" means unverified or a business-level miss, not a fault.
	if parsed.Status != "1" || len(parsed.Result) == 0 {
		return "", false, nil
	}
	source := strings.TrimSpace(parsed.Result[0].SourceCode)
	if source == "" {
		return "", false, nil
	}
	return source, true, nil
}
