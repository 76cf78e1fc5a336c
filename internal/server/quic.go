package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/pkg/encoding"
	"github.com/zeusync/planetwalk/pkg/wire"
)

// QUIC application error codes sent when closing a connection.
const (
	closeNormal       quic.ApplicationErrorCode = 0
	closeUnauthorized quic.ApplicationErrorCode = 1
	closeProtocol     quic.ApplicationErrorCode = 2
)

const (
	// DefaultIdleTimeout is the default connection idle timeout
	DefaultIdleTimeout = 30 * time.Second

	// DefaultKeepAlive is the default keep-alive interval
	DefaultKeepAlive = 10 * time.Second
)

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
	}
}

// GenerateSelfSignedTLS generates a self-signed TLS certificate for development
// and local renderers, negotiating the planetwalk ALPN.
func GenerateSelfSignedTLS() (*tls.Config, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"planetwalk"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{certDER},
			PrivateKey:  privateKey,
		}},
		NextProtos: []string{wire.ALPN},
		MinVersion: tls.VersionTLS13,
	}, nil
}

// acceptQUIC accepts connections until the listener is closed.
func (s *Server) acceptQUIC(ctx context.Context) error {
	s.logger.Debug("QUIC acceptor started")
	defer s.logger.Debug("QUIC acceptor stopped")

	for {
		conn, err := s.quicListener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || atomic.LoadInt32(&s.running) == 0 {
				return nil
			}
			return errors.Wrap(ErrTransportFailed, err.Error())
		}
		go s.handleQUIC(ctx, conn)
	}
}

// handleQUIC serves one connection. The client opens a single bidirectional
// stream and must send a hello frame first.
func (s *Server) handleQUIC(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	stream, err := conn.AcceptStream(helloCtx)
	cancel()
	if err != nil {
		s.logger.Debug("QUIC client opened no stream", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(closeProtocol, "no stream")
		return
	}

	_ = stream.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello wire.ClientMessage
	if err = encoding.Read(stream, encoding.DefaultMaxFrameSize, &hello); err != nil || hello.Type != wire.TypeHello {
		s.logger.Debug("QUIC client sent no hello", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(closeProtocol, "expected hello")
		return
	}
	_ = stream.SetReadDeadline(time.Time{})

	if err = s.auth.Authorize(hello.Token); err != nil {
		s.logger.Warn("QUIC client rejected", log.String("remote_addr", remote), log.Error(err))
		reply := &wire.ServerMessage{Type: wire.TypeError, Error: err.Error()}
		_ = encoding.Write(stream, reply)
		_ = conn.CloseWithError(closeUnauthorized, err.Error())
		return
	}

	session := newClientSession("quic", remote, func() error {
		return conn.CloseWithError(closeNormal, "")
	})
	s.register(session)
	defer s.unregister(session)

	go s.writeQUIC(stream, session)
	s.readQUIC(stream, session)
}

func (s *Server) readQUIC(r io.Reader, c *ClientSession) {
	for {
		var msg wire.ClientMessage
		if err := encoding.Read(r, encoding.DefaultMaxFrameSize, &msg); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("QUIC read failed", log.String("client_id", c.ID), log.Error(err))
			}
			return
		}
		s.handleMessage(c, msg)
	}
}

// writeQUIC is the only writer of stream.
func (s *Server) writeQUIC(stream *quic.Stream, c *ClientSession) {
	for {
		select {
		case payload := <-c.send:
			_ = stream.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := encoding.WriteFrame(stream, payload); err != nil {
				s.logger.Debug("QUIC write failed", log.String("client_id", c.ID), log.Error(err))
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
