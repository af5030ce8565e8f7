// Package zec is the Network-B protocol adapter: a single unary gRPC
// call (GetLightdInfo) to a lightwalletd-like CompactTxStreamer
// server, reached directly or through a SOCKS5/Tor proxy.
package zec

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"hosh/internal/domain"
	"hosh/internal/probe"
)

// callTimeout is the total deadline for dial + GetLightdInfo, per
// spec.md's authoritative timeout table.
const callTimeout = 10 * time.Second

const getLightdInfoMethod = "/cash.z.wallet.sdk.rpc.CompactTxStreamer/GetLightdInfo"

// Adapter is the Network-B (lightwalletd-like) protocol adapter.
type Adapter struct {
	dialer *probe.Dialer
}

// NewAdapter builds an Adapter that routes .onion targets through the
// given SOCKS5 proxy address.
func NewAdapter(proxyAddr string) *Adapter {
	return &Adapter{dialer: probe.NewDialer(proxyAddr)}
}

// Probe dials hostname:port and calls GetLightdInfo, mapping the reply
// onto the shared response-data shape (spec.md §4.2).
func (a *Adapter) Probe(ctx context.Context, hostname string, port int) domain.ResponseData {
	resp := domain.ResponseData{Host: hostname, Port: port}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	hostPort := net.JoinHostPort(hostname, strconv.Itoa(port))
	target := "passthrough:///" + hostPort

	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: true, NextProtos: []string{"h2"}})

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(creds),
		grpc.WithContextDialer(func(dialCtx context.Context, addr string) (net.Conn, error) {
			return a.dialer.DialContext(dialCtx, hostname, addr)
		}),
	)
	if err != nil {
		resp.ErrorType, resp.ErrorMessage = classifyError(hostname, err)
		return resp
	}
	defer conn.Close()

	req := newEmptyRequest()
	reply := newLightdInfoReply()

	start := time.Now()
	err = conn.Invoke(ctx, getLightdInfoMethod, req, reply)
	resp.PingMs = float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		resp.ErrorType, resp.ErrorMessage = classifyError(hostname, err)
		return resp
	}

	resp.Height = lightdInfoUint64(reply, "block_height")
	resp.ServerVersion = lightdInfoString(reply, "version")
	resp.Vendor = lightdInfoString(reply, "vendor")
	resp.GitCommit = lightdInfoString(reply, "git_commit")
	resp.ChainName = lightdInfoString(reply, "chain_name")
	resp.SaplingActivationHeight = lightdInfoUint64(reply, "sapling_activation_height")
	resp.ConsensusBranchID = lightdInfoString(reply, "consensus_branch_id")
	resp.TaddrSupport = lightdInfoBool(reply, "taddr_support")
	resp.EstimatedHeight = lightdInfoUint64(reply, "estimated_height")
	resp.ZcashdBuild = lightdInfoString(reply, "zcashd_build")
	resp.ZcashdSubversion = lightdInfoString(reply, "zcashd_subversion")

	if !probe.IsOnion(hostname) {
		if ips, err := net.DefaultResolver.LookupHost(ctx, hostname); err == nil {
			resp.ResolvedIPs = ips
		}
	}

	return resp
}

// classifyError collapses a dial/RPC failure into one of a small fixed
// set of human messages and error_type codes, mirroring the original
// checker's simplified-error mapping (spec.md §4.2).
func classifyError(hostname string, err error) (errType string, message string) {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "tls: ") || strings.Contains(msg, "handshake"):
		return domain.ErrorTypeConnectionError, "TLS handshake failed - server may be offline or not accepting connections"
	case strings.Contains(msg, "connection refused"):
		return domain.ErrorTypeHostUnreachable, "Connection refused - server may be offline or not accepting connections"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "no route to host"):
		return domain.ErrorTypeHostUnreachable, msg
	case probe.IsOnion(hostname) && strings.Contains(msg, "proxy"):
		return domain.ErrorTypeTorError, msg
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "DeadlineExceeded"):
		return domain.ErrorTypeTimeoutError, "Request timed out"
	case strings.Contains(msg, "invalid content type") || strings.Contains(msg, "InvalidContentType"):
		return domain.ErrorTypeProtocolError, "Invalid content type - server may not be a valid Zcash node"
	default:
		return domain.ErrorTypeProtocolError, simplifyGRPCMessage(msg)
	}
}

// simplifyGRPCMessage extracts the text after the "desc = " marker
// grpc-go puts in status error strings, when present, so stored error strings stay
// short and human-readable instead of carrying the full status dump.
func simplifyGRPCMessage(msg string) string {
	const marker = `desc = `
	if idx := strings.Index(msg, marker); idx >= 0 {
		return strings.TrimSuffix(msg[idx+len(marker):], `"`)
	}
	return msg
}
