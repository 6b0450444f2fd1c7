// Package chain reads contract bytecode, deployment status, and ERC-20
// metadata over JSON-RPC, with a best-effort explorer lookup for verified
// source code.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// rpcTimeout bounds every JSON-RPC call.
const rpcTimeout = 10 * time.Second

// Reader is the chain access surface the orchestrator and chat manager
// depend on.
type Reader interface {
	// IsContract reports whether the address has deployed code.
	IsContract(ctx context.Context, address string, network models.Network) (bool, error)
	// ContractCode returns the 0x-prefixed bytecode hex at the address.
	ContractCode(ctx context.Context, address string, network models.Network) (string, error)
	// TokenInfo returns ERC-20 metadata, with per-field fallbacks for
	// contracts that are not tokens.
	TokenInfo(ctx context.Context, address string, network models.Network) (models.TokenInfo, error)
	// SourceCode returns verified source text when the explorer has it.
	// Best-effort: (code, false) means no verified source was available.
	SourceCode(ctx context.Context, address string, network models.Network) (string, bool)
}

// NetworkEndpoint is the per-network connection configuration.
type NetworkEndpoint struct {
	RPCURL         string
	ChainID        int64
	ExplorerAPIURL string
	ExplorerAPIKey string
}

// Client implements Reader against one JSON-RPC endpoint per network.
type Client struct {
	clients   map[models.Network]*ethclient.Client
	endpoints map[models.Network]NetworkEndpoint
	explorer  *explorerClient
	logger    *zap.Logger
}

// NewClient dials every configured network eagerly so misconfigured RPC
// URLs fail at startup rather than on the first request.
func NewClient(endpoints map[models.Network]NetworkEndpoint, logger *zap.Logger) (*Client, error) {
	clients := make(map[models.Network]*ethclient.Client, len(endpoints))
	for network, ep := range endpoints {
		client, err := ethclient.Dial(ep.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s rpc: %w", network, err)
		}
		clients[network] = client
	}
	return &Client{
		clients:   clients,
		endpoints: endpoints,
		explorer:  newExplorerClient(),
		logger:    logger,
	}, nil
}

// Close releases every RPC connection.
func (c *Client) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

func (c *Client) clientFor(network models.Network) (*ethclient.Client, error) {
	client, ok := c.clients[network]
	if !ok {
		return nil, fmt.Errorf("network %s is not configured", network)
	}
	return client, nil
}

func (c *Client) ContractCode(ctx context.Context, address string, network models.Network) (string, error) {
	client, err := c.clientFor(network)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	code, err := client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", models.NewUpstreamError("failed to fetch contract code", err)
	}
	return hexutil.Encode(code), nil
}

func (c *Client) IsContract(ctx context.Context, address string, network models.Network) (bool, error) {
	code, err := c.ContractCode(ctx, address, network)
	if err != nil {
		return false, err
	}
	return code != "0x" && code != "0x0", nil
}

func (c *Client) TokenInfo(ctx context.Context, address string, network models.Network) (models.TokenInfo, error) {
	client, err := c.clientFor(network)
	if err != nil {
		return models.TokenInfo{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	contract := common.HexToAddress(address)

	// Each field falls back independently so non-token contracts still get
	// a usable analysis record.
	info := models.TokenInfo{
		Name:        "Unknown Token",
		Symbol:      "UNKNOWN",
		Decimals:    18,
		TotalSupply: "0",
	}

	if name, err := c.callString(ctx, client, contract, "name"); err == nil {
		info.Name = name
	}
	if symbol, err := c.callString(ctx, client, contract, "symbol"); err == nil {
		info.Symbol = symbol
	}
	if decimals, err := c.callUint8(ctx, client, contract, "decimals"); err == nil {
		info.Decimals = int(decimals)
	}
	if supply, err := c.callBig(ctx, client, contract, "totalSupply"); err == nil {
		info.TotalSupply = supply.String()
	}
	return info, nil
}

func (c *Client) SourceCode(ctx context.Context, address string, network models.Network) (string, bool) {
	ep, ok := c.endpoints[network]
	if !ok || ep.ExplorerAPIURL == "" {
		return "", false
	}
	source, verified, err := c.explorer.VerifiedSource(ctx, ep.ExplorerAPIURL, ep.ExplorerAPIKey, address)
	if err != nil {
		c.logger.Warn("explorer source lookup failed",
			zap.String("address", address),
			zap.String("network", string(network)),
			zap.Error(err))
		return "", false
	}
	return source, verified
}

func (c *Client) call(ctx context.Context, client *ethclient.Client, contract common.Address, method string) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return erc20ABI.Unpack(method, out)
}

func (c *Client) callString(ctx context.Context, client *ethclient.Client, contract common.Address, method string) (string, error) {
	out, err := c.call(ctx, client, contract, method)
	if err != nil || len(out) == 0 {
		return "", fmt.Errorf("call %s: %w", method, err)
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("call %s: unexpected return type %T", method, out[0])
	}
	return s, nil
}

func (c *Client) callUint8(ctx context.Context, client *ethclient.Client, contract common.Address, method string) (uint8, error) {
	out, err := c.call(ctx, client, contract, method)
	if err != nil || len(out) == 0 {
		return 0, fmt.Errorf("call %s: %w", method, err)
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("call %s: unexpected return type %T", method, out[0])
	}
	return v, nil
}

func (c *Client) callBig(ctx context.Context, client *ethclient.Client, contract common.Address, method string) (*big.Int, error) {
	out, err := c.call(ctx, client, contract, method)
	if err != nil || len(out) == 0 {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call %s: unexpected return type %T", method, out[0])
	}
	return v, nil
}
