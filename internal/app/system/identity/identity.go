// Package identity is the credential authority for the portal. Profiles
// live in role collections; the matching credential record lives here,
// keyed by the same uid. Registration tokens are short-lived JWTs minted
// by the signup flow and verified before a profile is created.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/cadetlink/cadetlink/internal/app/system/normalize"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// revoked accounts alike, so responses don't leak which it was.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrInvalidToken means the registration token failed verification.
	ErrInvalidToken = errors.New("identity: invalid or expired token")

	// ErrEmailTaken means an identity already exists for the email.
	ErrEmailTaken = errors.New("identity: email already registered")
)

const tokenTTL = 30 * time.Minute

// TokenClaims is what a verified registration token carries.
type TokenClaims struct {
	Email string
	Role  string
}

// Gateway is the credential authority the rest of the app talks to.
type Gateway interface {
	// Authenticate checks email+password and returns the uid.
	Authenticate(ctx context.Context, email, password string) (uid string, err error)
	// CreateIdentity stores credentials and returns the new uid.
	CreateIdentity(ctx context.Context, email, password, displayName, role string) (uid string, err error)
	// RevokeIdentity disables sign-in for a uid. Idempotent.
	RevokeIdentity(ctx context.Context, uid string) error
	// MintToken issues a short-lived registration token for a role.
	MintToken(email, role string) (string, error)
	// VerifyToken validates a registration token and returns its claims.
	VerifyToken(token string) (TokenClaims, error)
}

// MongoGateway implements Gateway over the identities collection.
type MongoGateway struct {
	coll      *mongo.Collection
	jwtSecret []byte
	issuer    string
}

// NewMongoGateway builds a gateway over db.identities.
func NewMongoGateway(db *mongo.Database, jwtSecret, issuer string) *MongoGateway {
	return &MongoGateway{
		coll:      db.Collection("identities"),
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
	}
}

func (g *MongoGateway) Authenticate(ctx context.Context, email, password string) (string, error) {
	email = normalize.Email(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	var id models.Identity
	err := g.coll.FindOne(ctx, bson.M{"email": email}).Decode(&id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("identity lookup: %w", err)
	}
	if id.Revoked {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return id.UID, nil
}

func (g *MongoGateway) CreateIdentity(ctx context.Context, email, password, displayName, role string) (string, error) {
	email = normalize.Email(email)
	if email == "" {
		return "", fmt.Errorf("identity: email is required")
	}
	if len(password) < 8 {
		return "", fmt.Errorf("identity: password must be at least 8 characters")
	}
	if !models.ValidRole(role) {
		return "", fmt.Errorf("identity: unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	id := models.Identity{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  normalize.Name(displayName),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := g.coll.InsertOne(ctx, id); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("insert identity: %w", err)
	}
	return id.UID, nil
}

func (g *MongoGateway) RevokeIdentity(ctx context.Context, uid string) error {
	_, err := g.coll.UpdateByID(ctx, uid, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoke identity %s: %w", uid, err)
	}
	return nil
}

func (g *MongoGateway) MintToken(email, role string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":   g.issuer,
		"sub":   normalize.Email(email),
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
		"jti":   uuid.NewString(),
		"scope": "register",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.jwtSecret)
}

func (g *MongoGateway) VerifyToken(token string) (TokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.jwtSecret, nil
	}, jwt.WithIssuer(g.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	if scope, _ := claims["scope"].(string); scope != "register" {
		return TokenClaims{}, ErrInvalidToken
	}

	email, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if email == "" || !models.ValidRole(strings.ToLower(role)) {
		return TokenClaims{}, ErrInvalidToken
	}
	return TokenClaims{Email: email, Role: strings.ToLower(role)}, nil
}

// EnsureIndexes creates the unique email index on identities.
func (g *MongoGateway) EnsureIndexes(ctx context.Context) error {
	_, err := g.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
