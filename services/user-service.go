package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	UsersCollection *mongo.Collection
	Blacklist       *TokenBlacklist
}

func NewUserService(usersCollection *mongo.Collection, blacklist *TokenBlacklist) *UserService {
	return &UserService{
		UsersCollection: usersCollection,
		Blacklist:       blacklist,
	}
}

type RegisterUserInput struct {
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	Modules  []string    `json:"modules"`
}

// RegisterUser creates an account. Admin only; passwords are bcrypt hashed
// and user-entered text is sanitized before it is stored.
func (s *UserService) RegisterUser(ctx context.Context, actor models.Actor, input RegisterUserInput) (*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Username == "" || input.Password == "" {
		return nil, utils.Validation("username and password are required")
	}
	if len(input.Password) < 8 {
		return nil, utils.Validation("password must be at least 8 characters long")
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if input.Role != models.RoleAdmin && input.Role != models.RoleUser {
		return nil, utils.Validation("unknown role: %s", input.Role)
	}

	var existing models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"username": input.Username}).Decode(&existing); err == nil {
		return nil, utils.Conflict("user with username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := models.User{
		ID:             primitive.NewObjectID(),
		Username:       html.EscapeString(input.Username),
		Name:           html.EscapeString(input.Name),
		Email:          html.EscapeString(input.Email),
		Password:       string(hashedPassword),
		Role:           input.Role,
		AllowedModules: input.Modules,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}

	if _, err := s.UsersCollection.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}
	return &user, nil
}

// EnsureBootstrapAdmin seeds an admin account when the users collection is
// empty, so a fresh deployment can log in. Returns the generated password,
// or "" when nothing was seeded.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username string) (string, error) {
	count, err := s.UsersCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return "", fmt.Errorf("failed to count users: %v", err)
	}
	if count > 0 {
		return "", nil
	}
	if username == "" {
		username = "admin"
	}

	password := utils.GenerateRandomPassword()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}

	user := models.User{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Name:      "Administrator",
		Password:  string(hashedPassword),
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if _, err := s.UsersCollection.InsertOne(ctx, user); err != nil {
		return "", fmt.Errorf("failed to save bootstrap admin: %v", err)
	}
	return password, nil
}

// Login verifies credentials and issues a JWT carrying role and module
// allowlist claims.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var user models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, "", utils.Unauthorized("invalid username or password")
	}
	if !user.IsActive {
		return nil, "", utils.Unauthorized("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", utils.Unauthorized("invalid username or password")
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Username, string(user.Role), user.AllowedModules)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return &user, token, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *UserService) Logout(ctx context.Context, tokenStr string) error {
	claims, err := utils.ValidateToken(tokenStr)
	if err != nil {
		return utils.Unauthorized("invalid token")
	}
	return s.Blacklist.Revoke(ctx, tokenStr, utils.TokenTTL(claims))
}

// GetAllUsers lists accounts. Admin only.
func (s *UserService) GetAllUsers(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	cursor, err := s.UsersCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

type UserPatch struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Role     *models.Role `json:"role"`
	Modules  *[]string    `json:"modules"`
	IsActive *bool        `json:"isActive"`
}

// UpdateUser edits account fields, including the module allowlist. Admin
// only.
func (s *UserService) UpdateUser(ctx context.Context, actor models.Actor, userID string, patch UserPatch) (*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, utils.Validation("invalid user ID format")
	}

	var user models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		return nil, utils.NotFound("user not found")
	}

	if patch.Name != nil {
		user.Name = html.EscapeString(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = html.EscapeString(*patch.Email)
	}
	if patch.Role != nil {
		if *patch.Role != models.RoleAdmin && *patch.Role != models.RoleUser {
			return nil, utils.Validation("unknown role: %s", *patch.Role)
		}
		user.Role = *patch.Role
	}
	if patch.Modules != nil {
		user.AllowedModules = *patch.Modules
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	if _, err := s.UsersCollection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}
	return &user, nil
}
