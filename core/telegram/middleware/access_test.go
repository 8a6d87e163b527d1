package middleware

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type senderCtx struct {
	tele.Context
	user *tele.User
}

func (c senderCtx) Sender() *tele.User { return c.user }

func TestAdminOptionsAllowed(t *testing.T) {
	opts := AdminOptions{AdminIDs: []int64{100, 200}}
	if !opts.Allowed(100) || !opts.Allowed(200) {
		t.Fatal("listed ids must be allowed")
	}
	if opts.Allowed(300) || opts.Allowed(0) {
		t.Fatal("unlisted ids must not be allowed")
	}
}

func TestWithAdminCheckBlocksOutsiders(t *testing.T) {
	var handled, rejected bool
	h := WithAdminCheck(AdminOptions{
		AdminIDs: []int64{100},
		OnReject: func(tele.Context) error { rejected = true; return nil },
	}, struct {
		AdminOnly bool
		Handler   tele.HandlerFunc
	}{
		AdminOnly: true,
		Handler:   func(tele.Context) error { handled = true; return nil },
	})

	if err := h(senderCtx{user: &tele.User{ID: 999}}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if handled || !rejected {
		t.Fatalf("outsider must be rejected: handled=%v rejected=%v", handled, rejected)
	}

	handled, rejected = false, false
	if err := h(senderCtx{user: &tele.User{ID: 100}}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !handled || rejected {
		t.Fatalf("admin must pass: handled=%v rejected=%v", handled, rejected)
	}
}

func TestWithAdminCheckPassthrough(t *testing.T) {
	var handled bool
	h := WithAdminCheck(AdminOptions{AdminIDs: []int64{100}}, struct {
		AdminOnly bool
		Handler   tele.HandlerFunc
	}{
		Handler: func(tele.Context) error { handled = true; return nil },
	})
	if err := h(senderCtx{user: &tele.User{ID: 999}}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !handled {
		t.Fatal("non-admin-only commands must run for everyone")
	}
}
