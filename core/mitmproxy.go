package core

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"log" // Standard log package for goproxy.Logger config
	"math/big"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/elazarl/goproxy"

	"privacyguard/database"
	"privacyguard/logger"
	"privacyguard/models"
)

var (
	caCert         *x509.Certificate
	caKey          *rsa.PrivateKey
	sessionIsHTTPS = make(map[int64]bool)
	muSession      sync.Mutex
)

// proxyRequestContextData is passed from the request handler to the
// response handler via ctx.UserData.
type proxyRequestContextData struct {
	Record  *models.DecisionRecord
	Request models.Request
	Started time.Time
}

func setGoproxyCA(loadedCA *tls.Certificate) {
	if loadedCA == nil {
		logger.Fatal("setGoproxyCA called with nil certificate")
	}
	goproxy.GoproxyCa = *loadedCA
	logger.ProxyInfo("goproxy CA configured.")
}

// GenerateAndSaveCA creates the root CA used for TLS interception and
// writes it to the configured paths.
func GenerateAndSaveCA(certPath, keyPath string) error {
	localCACert, localCAKey, err := generateCA("privacyguard MITM Proxy CA")
	if err != nil {
		logger.Error("Failed to generate CA: %v", err)
		return fmt.Errorf("failed to generate CA: %w", err)
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		logger.Error("Failed to open %s for writing: %v", certPath, err)
		return fmt.Errorf("failed to open %s for writing: %w", certPath, err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: localCACert.Raw}); err != nil {
		logger.Error("Failed to write CA certificate to %s: %v", certPath, err)
		return fmt.Errorf("failed to write CA certificate to %s: %w", certPath, err)
	}
	fmt.Printf("CA certificate saved to %s\n", certPath)

	keyOut, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logger.Error("Failed to open %s for writing: %v", keyPath, err)
		return fmt.Errorf("failed to open %s for writing: %w", keyPath, err)
	}
	defer keyOut.Close()

	privBytes, err := x509.MarshalPKCS8PrivateKey(localCAKey)
	if err != nil {
		logger.ProxyInfo("Warning: could not marshal private key to PKCS8: %v. Trying PKCS1.", err)
		privBytes = x509.MarshalPKCS1PrivateKey(localCAKey)
		if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes}); err != nil {
			logger.Error("Failed to write CA RSA private key to %s: %v", keyPath, err)
			return fmt.Errorf("failed to write CA RSA private key to %s: %w", keyPath, err)
		}
	} else {
		if err := pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}); err != nil {
			logger.Error("Failed to write CA private key to %s: %v", keyPath, err)
			return fmt.Errorf("failed to write CA private key to %s: %w", keyPath, err)
		}
	}
	fmt.Printf("CA private key saved to %s\n", keyPath)
	return nil
}

func loadCA(certPath, keyPath string) error {
	certPEMBlock, err := os.ReadFile(certPath)
	if err != nil {
		logger.Error("Failed to read CA certificate file %s: %v", certPath, err)
		return fmt.Errorf("failed to read CA certificate file %s: %w", certPath, err)
	}
	certDERBlock, _ := pem.Decode(certPEMBlock)
	if certDERBlock == nil || certDERBlock.Type != "CERTIFICATE" {
		logger.Error("Failed to decode CA certificate PEM block from %s", certPath)
		return fmt.Errorf("failed to decode CA certificate PEM block from %s", certPath)
	}
	loadedCACert, err := x509.ParseCertificate(certDERBlock.Bytes)
	if err != nil {
		logger.Error("Failed to parse CA certificate from %s: %v", certPath, err)
		return fmt.Errorf("failed to parse CA certificate from %s: %w", certPath, err)
	}
	caCert = loadedCACert

	keyPEMBlock, err := os.ReadFile(keyPath)
	if err != nil {
		logger.Error("Failed to read CA key file %s: %v", keyPath, err)
		return fmt.Errorf("failed to read CA key file %s: %w", keyPath, err)
	}
	keyDERBlock, _ := pem.Decode(keyPEMBlock)
	if keyDERBlock == nil {
		logger.Error("Failed to decode CA key PEM block from %s", keyPath)
		return fmt.Errorf("failed to decode CA key PEM block from %s", keyPath)
	}

	var parsedKey interface{}
	switch keyDERBlock.Type {
	case "PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS8PrivateKey(keyDERBlock.Bytes)
	case "RSA PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS1PrivateKey(keyDERBlock.Bytes)
	default:
		logger.Error("Unknown CA key PEM block type '%s' from %s", keyDERBlock.Type, keyPath)
		return fmt.Errorf("unknown CA key PEM block type '%s' from %s", keyDERBlock.Type, keyPath)
	}
	if err != nil {
		logger.Error("Failed to parse CA private key from %s (type %s): %v", keyPath, keyDERBlock.Type, err)
		return fmt.Errorf("failed to parse CA private key from %s (type %s): %w", keyPath, keyDERBlock.Type, err)
	}

	loadedCAKey, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		logger.Error("CA key from %s is not an RSA private key after parsing type %s", keyPath, keyDERBlock.Type)
		return fmt.Errorf("CA key from %s is not an RSA private key after parsing type %s", keyPath, keyDERBlock.Type)
	}
	caKey = loadedCAKey

	logger.ProxyInfo("CA certificate and key loaded successfully.")
	return nil
}

func generateCA(commonName string) (*x509.Certificate, *rsa.PrivateKey, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"privacyguard Development CA"},
			CommonName:   commonName,
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(derBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse generated CA certificate: %w", err)
	}
	return cert, privKey, nil
}

// frameOriginOf derives the top-level document origin for a proxied
// request. The Referer header is the best signal a forward proxy has for
// which document issued the request; requests without one (direct
// navigations) classify as first-party against their own URL.
func frameOriginOf(r *http.Request) string {
	if referer := r.Header.Get("Referer"); referer != "" {
		return OriginOfURL(referer)
	}
	if r.URL != nil {
		return OriginOfURL(r.URL.String())
	}
	return ""
}

// StartMitmProxy runs the intercepting proxy on the given port, routing
// every request through the session's interceptor and applying the
// resulting Decision before anything reaches the network.
func StartMitmProxy(port string, session *SessionContext, caCertPath, caKeyPath string) error {
	if session == nil {
		return fmt.Errorf("cannot start proxy without a session")
	}
	if err := loadCA(caCertPath, caKeyPath); err != nil {
		return fmt.Errorf("could not load CA certificate/key: %w. Please run 'proxy init-ca' or check config.", err)
	}

	setGoproxyCA(&tls.Certificate{
		Certificate: [][]byte{caCert.Raw},
		PrivateKey:  caKey,
		Leaf:        caCert,
	})

	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = log.New(io.Discard, "", 0)

	proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		muSession.Lock()
		sessionIsHTTPS[ctx.Session] = true
		muSession.Unlock()
		logger.ProxyDebug("HandleConnect for session %d, host %s", ctx.Session, host)
		return &goproxy.ConnectAction{Action: goproxy.ConnectMitm, TLSConfig: goproxy.TLSConfigFromCA(&goproxy.GoproxyCa)}, host
	}))

	proxy.OnRequest().DoFunc(
		func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
			startTime := time.Now()

			muSession.Lock()
			isHTTPS := sessionIsHTTPS[ctx.Session]
			muSession.Unlock()
			if r.Method == http.MethodConnect {
				isHTTPS = true
			}

			req := models.Request{
				URL:         r.URL.String(),
				Method:      r.Method,
				FrameOrigin: frameOriginOf(r),
				Headers:     r.Header,
			}
			decision := session.OnRequest(req)

			record := &models.DecisionRecord{
				SessionID:     models.NullString(session.ID),
				Timestamp:     startTime,
				RequestMethod: models.NullString(r.Method),
				RequestURL:    models.NullString(req.URL),
				Action:        string(decision.Action),
				CookieAction:  string(decision.CookieAction),
				MatchedEntry:  models.NullString(decision.MatchedEntry),
				IsThirdParty:  RequestIsThirdParty(req),
				IsHTTPS:       isHTTPS,
				ClientIP:      models.NullString(r.RemoteAddr),
			}

			if decision.Action == models.ActionBlock {
				logger.ProxyInfo("REQ: %s %s - BLOCKED (matched: %s)", r.Method, req.URL, decision.MatchedEntry)
				record.DurationMs = time.Since(startTime).Milliseconds()
				recordDecision(record)
				muSession.Lock()
				delete(sessionIsHTTPS, ctx.Session)
				muSession.Unlock()
				return r, goproxy.NewResponse(r, goproxy.ContentTypeText, http.StatusForbidden, "Blocked by privacyguard")
			}

			for name, value := range decision.HeaderOverrides {
				if value == "" {
					r.Header.Del(name)
					continue
				}
				r.Header.Set(name, value)
			}
			if decision.CookieAction != models.CookieAccept {
				r.Header.Del("Cookie")
			}

			ctx.UserData = &proxyRequestContextData{Record: record, Request: req, Started: startTime}
			logger.ProxyInfo("REQ: %s %s (HTTPS: %t, cookies: %s)", r.Method, req.URL, isHTTPS, decision.CookieAction)
			return r, nil
		})

	proxy.OnResponse().DoFunc(
		func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
			pCtxData, ok := ctx.UserData.(*proxyRequestContextData)
			if !ok || pCtxData == nil || pCtxData.Record == nil {
				return resp
			}

			if resp != nil && len(resp.Header.Values("Set-Cookie")) > 0 {
				if session.DecideCookie(pCtxData.Request, models.CookieOpSet) != models.CookieAccept {
					logger.ProxyDebug("RESP: Stripping Set-Cookie from %s", pCtxData.Request.URL)
					resp.Header.Del("Set-Cookie")
				}
			}

			pCtxData.Record.DurationMs = time.Since(pCtxData.Started).Milliseconds()
			recordDecision(pCtxData.Record)

			if resp != nil {
				logger.ProxyInfo("RESP: %d for %s %s (Duration: %dms)", resp.StatusCode, pCtxData.Record.RequestMethod.String, pCtxData.Request.URL, pCtxData.Record.DurationMs)
			}

			muSession.Lock()
			delete(sessionIsHTTPS, ctx.Session)
			muSession.Unlock()

			return resp
		})

	logger.ProxyInfo("MITM Proxy server starting on :%s (session %s)", port, session.ID)
	return http.ListenAndServe(":"+port, proxy)
}

// recordDecision appends to the audit log. Auditing is best-effort and
// never blocks a verdict.
func recordDecision(record *models.DecisionRecord) {
	if database.DB == nil {
		logger.ProxyError("recordDecision: Database is not initialized.")
		return
	}
	if err := database.InsertDecisionRecord(record); err != nil {
		logger.ProxyError("DB log error for %s %s: %v", record.RequestMethod.String, record.RequestURL.String, err)
	}
}
