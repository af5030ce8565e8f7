// Package btc is the Network-A protocol adapter: a line-delimited
// JSON-RPC 2.0 client over TLS/TCP/SOCKS5, speaking the Electrum
// protocol's server.version and blockchain.headers.subscribe methods.
package btc

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"hosh/internal/domain"
	"hosh/internal/probe"
)

const (
	clientIdentifier  = "hosh"
	protocolVersionLo = "1.4"
	protocolVersionHi = "1.4.5"

	rpcReadTimeout  = 5 * time.Second
	rpcWriteTimeout = 5 * time.Second

	// plaintextPort is the designated plaintext Electrum port; TLS
	// negotiation is skipped for it (spec.md §4.1 transport selection).
	plaintextPort = 50001
)

// Adapter is the Network-A (BTC/Electrum-like) protocol adapter.
type Adapter struct {
	dialer *probe.Dialer
}

// NewAdapter builds an Adapter that routes .onion targets through the
// given SOCKS5 proxy address.
func NewAdapter(proxyAddr string) *Adapter {
	return &Adapter{dialer: probe.NewDialer(proxyAddr)}
}

type rpcRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Probe connects to hostname:port and runs the full server.version +
// blockchain.headers.subscribe probe sequence (spec.md §4.1).
func (a *Adapter) Probe(ctx context.Context, hostname string, port int) domain.ResponseData {
	resp := domain.ResponseData{Host: hostname, Port: port}

	conn, connInfo, err := a.connect(ctx, hostname, port)
	if err != nil {
		errType, msg := classifyConnectError(hostname, err)
		resp.ErrorType, resp.ErrorMessage = errType, msg
		return resp
	}
	defer conn.Close()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	serverVersion, err := a.callServerVersion(conn, rw)
	if err != nil {
		resp.ErrorType, resp.ErrorMessage = classifyRPCError(err), err.Error()
		return resp
	}
	resp.ServerVersion = serverVersion

	start := time.Now()
	height, headerHex, err := a.callHeadersSubscribe(conn, rw)
	resp.PingMs = float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		resp.ErrorType, resp.ErrorMessage = classifyRPCError(err), err.Error()
		return resp
	}
	resp.Height = height

	resp.ConnectionType = domain.ConnectionType(connInfo.connectionType)
	resp.SelfSigned = connInfo.selfSigned
	resp.TLSVersion = connInfo.tlsVersion

	if headerHex != "" {
		h, err := ParseHeaderHex(headerHex)
		if err != nil {
			resp.ErrorType, resp.ErrorMessage = "parse_error", err.Error()
			return resp
		}
		resp.Bits = h.Bits
		resp.Nonce = h.Nonce
		resp.PrevBlock = h.PrevBlockDisplay()
		resp.MerkleRoot = h.MerkleRootDisplay()
		resp.Timestamp = h.Timestamp
		resp.LastUpdated = time.Unix(int64(h.Timestamp), 0).UTC().Format(time.RFC3339)
	}

	if !probe.IsOnion(hostname) {
		if ips, err := net.DefaultResolver.LookupHost(ctx, hostname); err == nil {
			resp.ResolvedIPs = ips
		}
	}

	return resp
}

type connInfo struct {
	connectionType string
	selfSigned     bool
	tlsVersion     string
}

// connect implements the transport-selection and TLS-retry sequence
// from spec.md §4.1: direct vs. SOCKS5 by onion-ness, TLS skipped on
// the plaintext port, and a verify-then-insecure-retry TLS handshake
// so self-signed endpoints are still reachable (recorded as such).
func (a *Adapter) connect(ctx context.Context, hostname string, port int) (net.Conn, connInfo, error) {
	addr := fmt.Sprintf("%s:%d", hostname, port)
	isOnion := probe.IsOnion(hostname)

	raw, err := a.dialer.DialContext(ctx, hostname, addr)
	if err != nil {
		return nil, connInfo{}, err
	}

	if port == plaintextPort && !isOnion {
		return raw, connInfo{connectionType: "Plaintext"}, nil
	}

	tlsConn, info, err := tlsHandshake(raw, hostname, func() (net.Conn, error) {
		return a.dialer.DialContext(ctx, hostname, addr)
	})
	if err != nil {
		raw.Close()
		return nil, connInfo{}, err
	}
	if isOnion {
		info.connectionType = "Tor"
	}
	return tlsConn, info, nil
}

// tlsHandshake tries a verified handshake on raw and, if that fails,
// closes raw and retries without verification on a fresh connection
// from redial.
func tlsHandshake(raw net.Conn, hostname string, redial func() (net.Conn, error)) (net.Conn, connInfo, error) {
	verified := tls.Client(raw, &tls.Config{
		ServerName: hostname,
		MinVersion: tls.VersionTLS10,
		MaxVersion: tls.VersionTLS13,
	})
	if err := verified.Handshake(); err == nil {
		return verified, connInfo{
			connectionType: "SSL",
			selfSigned:     false,
			tlsVersion:     tlsVersionString(verified.ConnectionState().Version),
		}, nil
	}

	raw.Close()
	retryConn, err := redial()
	if err != nil {
		return nil, connInfo{}, err
	}
	insecure := tls.Client(retryConn, &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
		MaxVersion:         tls.VersionTLS13,
	})
	if err := insecure.Handshake(); err != nil {
		retryConn.Close()
		return nil, connInfo{}, err
	}
	return insecure, connInfo{
		connectionType: "SSL (self-signed)",
		selfSigned:     true,
		tlsVersion:     tlsVersionString(insecure.ConnectionState().Version),
	}, nil
}

func tlsVersionString(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "unknown"
	}
}

func (a *Adapter) callServerVersion(conn net.Conn, rw *bufio.ReadWriter) (string, error) {
	req := rpcRequest{ID: 1, Method: "server.version", Params: []any{clientIdentifier, []string{protocolVersionLo, protocolVersionHi}}}
	resp, err := a.call(conn, rw, req)
	if err != nil {
		return "", err
	}
	var fields []string
	if err := json.Unmarshal(resp.Result, &fields); err != nil || len(fields) == 0 {
		return "", fmt.Errorf("btc: malformed server.version result: %w", err)
	}
	return fields[0], nil
}

func (a *Adapter) callHeadersSubscribe(conn net.Conn, rw *bufio.ReadWriter) (uint64, string, error) {
	req := rpcRequest{ID: 2, Method: "blockchain.headers.subscribe", Params: []any{}}
	resp, err := a.call(conn, rw, req)
	if err != nil {
		return 0, "", err
	}
	var body struct {
		Height uint64 `json:"height"`
		Hex    string `json:"hex"`
	}
	if err := json.Unmarshal(resp.Result, &body); err != nil {
		return 0, "", nil // malformed subscribe payload is not fatal; height/hex stay zero
	}
	return body.Height, body.Hex, nil
}

// call sends one JSON-RPC request and reads one newline-terminated
// response, enforcing the independent 5-second read/write deadlines
// spec.md §4.1 names.
func (a *Adapter) call(conn net.Conn, rw *bufio.ReadWriter, req rpcRequest) (rpcResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return rpcResponse{}, err
	}
	payload = append(payload, '\n')

	conn.SetWriteDeadline(time.Now().Add(rpcWriteTimeout))
	if _, err := rw.Write(payload); err != nil {
		return rpcResponse{}, err
	}
	if err := rw.Flush(); err != nil {
		return rpcResponse{}, err
	}

	conn.SetReadDeadline(time.Now().Add(rpcReadTimeout))
	line, err := rw.ReadString('\n')
	if err != nil {
		return rpcResponse{}, err
	}

	var resp rpcResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &resp); err != nil {
		return rpcResponse{}, fmt.Errorf("btc: malformed JSON-RPC response: %w", err)
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return rpcResponse{}, fmt.Errorf("btc: rpc error: %s", resp.Error)
	}
	return resp, nil
}

// classifyConnectError maps a connect/TLS-stage failure to the
// error_type taxonomy in spec.md §4.1.
func classifyConnectError(hostname string, err error) (errType string, msg string) {
	msg = err.Error()
	errType = "connection_error"

	switch {
	case probe.IsOnion(hostname) && strings.Contains(msg, "proxy"):
		errType = "tor_error"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "refused"), strings.Contains(msg, "no route to host"):
		errType = "host_unreachable"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "i/o timeout"):
		errType = "timeout_error"
	}

	return errType, msg
}

// classifyRPCError maps a post-connect protocol failure to its
// error_type, per spec.md §4.1.
func classifyRPCError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "i/o timeout"):
		return "timeout_error"
	case strings.Contains(msg, "malformed"):
		return "protocol_error"
	default:
		return "protocol_error"
	}
}
