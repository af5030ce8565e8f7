package zec

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func setField(m *dynamicpb.Message, name string, v protoreflect.Value) {
	ensureDescriptors()
	m.Set(lightdFields[name], v)
}

func fakeLightwalletdServer(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}

	handler := func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newEmptyRequest()
		if err := dec(in); err != nil {
			return nil, err
		}
		reply := newLightdInfoReply()
		setField(reply, "version", protoreflect.ValueOfString("2.2.0"))
		setField(reply, "vendor", protoreflect.ValueOfString("ECC"))
		setField(reply, "chain_name", protoreflect.ValueOfString("main"))
		setField(reply, "block_height", protoreflect.ValueOfUint64(2400123))
		setField(reply, "taddr_support", protoreflect.ValueOfBool(true))
		return reply, nil
	}

	desc := grpc.ServiceDesc{
		ServiceName: "cash.z.wallet.sdk.rpc.CompactTxStreamer",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetLightdInfo", Handler: handler},
		},
	}

	srv := grpc.NewServer(grpc.Creds(credentials.NewTLS(&tls.Config{Certificates: []tls.Certificate{cert}, NextProtos: []string{"h2"}})))
	srv.RegisterService(&desc, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(srv.Stop)

	return ln.Addr().String()
}

func TestAdapter_Probe_HappyPath(t *testing.T) {
	addr := fakeLightwalletdServer(t)
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	a := NewAdapter("")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := a.Probe(ctx, host, port)
	if resp.ErrorType != "" {
		t.Fatalf("expected no error, got %q: %q", resp.ErrorType, resp.ErrorMessage)
	}
	if resp.Height != 2400123 {
		t.Errorf("Height = %d, want 2400123", resp.Height)
	}
	if resp.Vendor != "ECC" {
		t.Errorf("Vendor = %q, want ECC", resp.Vendor)
	}
	if !resp.TaddrSupport {
		t.Error("expected TaddrSupport to be true")
	}
}

func TestAdapter_Probe_ConnectionRefused(t *testing.T) {
	a := NewAdapter("")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp := a.Probe(ctx, "127.0.0.1", 1)
	if resp.ErrorType == "" {
		t.Fatal("expected an error_type for a refused connection")
	}
}

func TestClassifyError_ConnectionRefused(t *testing.T) {
	errType, msg := classifyError("example.com", fakeErr("connection refused"))
	if errType != "host_unreachable" {
		t.Errorf("errType = %q, want host_unreachable", errType)
	}
	if msg == "" {
		t.Error("expected a non-empty message")
	}
}

func TestClassifyError_TorError(t *testing.T) {
	errType, _ := classifyError("abc123.onion", fakeErr("proxy dial failed"))
	if errType != "tor_error" {
		t.Errorf("errType = %q, want tor_error", errType)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
