package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	pb "github.com/mmynk/dutch/pkg/dutchrpc"
)

func TestRegister(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.auth.Register(context.Background(), connect.NewRequest(&pb.RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Msg.Token == "" {
		t.Error("expected token")
	}
	if resp.Msg.User.Email != "alice@example.com" {
		t.Errorf("email: expected lowercased, got %q", resp.Msg.User.Email)
	}

	tests := []struct {
		name     string
		req      *pb.RegisterRequest
		wantCode connect.Code
	}{
		{"duplicate username", &pb.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "password123"}, connect.CodeAlreadyExists},
		{"duplicate email", &pb.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "password123"}, connect.CodeAlreadyExists},
		{"short username", &pb.RegisterRequest{Username: "al", Email: "al@example.com", Password: "password123"}, connect.CodeInvalidArgument},
		{"bad email", &pb.RegisterRequest{Username: "bobby", Email: "bobby", Password: "password123"}, connect.CodeInvalidArgument},
		{"weak password", &pb.RegisterRequest{Username: "bobby", Email: "bobby@example.com", Password: "password"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.auth.Register(context.Background(), connect.NewRequest(tt.req))
			if code := connect.CodeOf(err); code != tt.wantCode {
				t.Errorf("code: expected %v, got %v (%v)", tt.wantCode, code, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	srv := setupTestServer(t)
	userID, _ := srv.register(t, "alice")

	for _, identifier := range []string{"alice", "alice@example.com"} {
		resp, err := srv.auth.Login(context.Background(), connect.NewRequest(&pb.LoginRequest{
			Identifier: identifier,
			Password:   "password123",
		}))
		if err != nil {
			t.Fatalf("Login(%s) failed: %v", identifier, err)
		}
		if resp.Msg.User.ID != userID || resp.Msg.Token == "" {
			t.Errorf("Login(%s): unexpected response %+v", identifier, resp.Msg)
		}
	}

	_, err := srv.auth.Login(context.Background(), connect.NewRequest(&pb.LoginRequest{
		Identifier: "alice",
		Password:   "wrong-password1",
	}))
	if code := connect.CodeOf(err); code != connect.CodeUnauthenticated {
		t.Errorf("wrong password: expected Unauthenticated, got %v", code)
	}

	_, err = srv.auth.Login(context.Background(), connect.NewRequest(&pb.LoginRequest{}))
	if code := connect.CodeOf(err); code != connect.CodeInvalidArgument {
		t.Errorf("empty request: expected InvalidArgument, got %v", code)
	}
}
