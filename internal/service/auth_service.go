package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/dutch/internal/auth"
	"github.com/mmynk/dutch/internal/models"
	pb "github.com/mmynk/dutch/pkg/dutchrpc"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	pb.UnimplementedAuthServiceHandler
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[pb.RegisterRequest]) (*connect.Response[pb.RegisterResponse], error) {
	s.logger.Info("Register request", "username", req.Msg.Username)

	user, err := s.authenticator.Register(ctx, req.Msg.Username, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "username", req.Msg.Username, "error", err)
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidEmail):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&pb.RegisterResponse{
		User:  toProtoUser(user),
		Token: token,
	}), nil
}

// Login authenticates a user by username or email and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[pb.LoginRequest]) (*connect.Response[pb.LoginResponse], error) {
	s.logger.Info("Login request", "identifier", req.Msg.Identifier)

	if req.Msg.Identifier == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing identifier or password"))
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Identifier, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "identifier", req.Msg.Identifier, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return connect.NewResponse(&pb.LoginResponse{
		User:  toProtoUser(user),
		Token: token,
	}), nil
}

func toProtoUser(user *models.User) *pb.User {
	return &pb.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
