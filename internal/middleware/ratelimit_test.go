package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type dummy struct{ email string }

func (d dummy) GetEmail() string { return d.email }

func TestLimiterStore_AllowAndCleanup(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, time.Hour)
	defer s.Stop()

	key := "test@uga.edu"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}
	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}
	if !s.Allow("other@uga.edu") {
		t.Fatalf("keys must not share a limiter")
	}

	s.evictIdle(time.Now().Add(time.Minute))
	if s.Len() != 0 {
		t.Fatalf("expected idle entries to be evicted, %d left", s.Len())
	}

	// stopping twice must not panic
	s.Stop()
}

func TestRateLimitUnaryInterceptor(t *testing.T) {
	s := NewLimiterStore(1, 1, time.Hour)
	defer s.Stop()

	icpt := RateLimitUnaryInterceptor(s, map[string]bool{"/svc/Login": true})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}})

	if _, err := icpt(ctx, dummy{"A@UGA.edu"}, info, handler); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	// same account with different casing shares the limiter
	_, err := icpt(ctx, dummy{"a@uga.edu"}, info, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}

	// methods outside the list are never limited
	free := &grpc.UnaryServerInfo{FullMethod: "/svc/SendMessage"}
	for i := 0; i < 3; i++ {
		if _, err := icpt(ctx, dummy{"a@uga.edu"}, free, handler); err != nil {
			t.Fatalf("unlimited method blocked: %v", err)
		}
	}

	// without an email the peer address is the key
	if _, err := icpt(ctx, struct{}{}, info, handler); err != nil {
		t.Fatalf("peer-keyed call should pass: %v", err)
	}
	if _, err := icpt(ctx, struct{}{}, info, handler); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected second peer-keyed call to be limited, got %v", err)
	}
}

func TestRateLimitGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewLimiterStore(1, 2, time.Hour)
	defer s.Stop()

	r := gin.New()
	r.Use(RateLimit(s, nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codesSeen := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		codesSeen = append(codesSeen, w.Code)
	}

	if codesSeen[0] != http.StatusOK || codesSeen[1] != http.StatusOK || codesSeen[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes: %v", codesSeen)
	}
}
