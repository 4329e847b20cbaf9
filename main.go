package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"subsidy-crm/crm-service/handlers"
	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/middleware"
	"subsidy-crm/crm-service/realtime"
	"subsidy-crm/crm-service/repositories"
	"subsidy-crm/crm-service/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createUsernameIndex(collection *mongo.Collection) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"username": 1},
		Options: options.Index().SetUnique(true),
	}
	_, err := collection.Indexes().CreateOne(context.TODO(), indexModel)
	if err != nil {
		return fmt.Errorf("failed to create unique index on username: %v", err)
	}
	return nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", os.Getenv("CORS_ALLOWED_ORIGIN"))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_FILE_MISSING, Description: No .env file found, relying on process environment: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Fatal("Database connection failed:", err)
	}
	defer client.Disconnect(context.TODO())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "crm_db"
	}
	crmDB := client.Database(dbName)
	usersCollection := crmDB.Collection("users")
	leadsCollection := crmDB.Collection("leads")
	clientsCollection := crmDB.Collection("clients")
	projectsCollection := crmDB.Collection("projects")
	invoicesCollection := crmDB.Collection("invoices")
	countersCollection := crmDB.Collection("counters")
	settingsCollection := crmDB.Collection("settings")
	auditCollection := crmDB.Collection("audit_logs")
	notificationsCollection := crmDB.Collection("notifications")

	if err := createUsernameIndex(usersCollection); err != nil {
		log.Fatal(err)
	}

	// Long-term notification history lives in Cassandra; the service keeps
	// running without it, archive writes just start failing through the
	// breaker.
	archive, err := repositories.NewNotificationArchive()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASSANDRA_UNAVAILABLE, Description: Notification archive disabled: %v", err)
	} else {
		defer archive.Close()
		if err := archive.EnsureTable(); err != nil {
			logging.Logger.Errorf("Event ID: CASSANDRA_TABLE_FAILED, Description: Failed to ensure archive table: %v", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	})
	blacklist := services.NewTokenBlacklist(redisClient)

	archiveBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "NotificationArchive",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Warnf("Event ID: BREAKER_STATE_CHANGE, Description: Circuit breaker %s changed state from %s to %s", name, from, to)
		},
	})

	storageRoot := os.Getenv("UPLOAD_DIR")
	if storageRoot == "" {
		storageRoot = "uploads"
	}
	storage, err := services.NewStorageService(storageRoot)
	if err != nil {
		log.Fatal("Storage initialization failed:", err)
	}

	strict := os.Getenv("STRICT_CONCURRENCY") == "true"

	hub := realtime.NewHub()

	counters := services.NewCounterService(countersCollection)
	settingsService := services.NewSettingsService(settingsCollection)
	auditService := services.NewAuditService(auditCollection)
	notificationService := services.NewNotificationService(notificationsCollection, usersCollection, hub, archive, archiveBreaker)
	dispatcher := services.NewSideEffectDispatcher(auditService, notificationService)
	automation := services.NewAutomationEngine()

	userService := services.NewUserService(usersCollection, blacklist)
	leadService := services.NewLeadService(leadsCollection, clientsCollection, counters, settingsService, dispatcher)
	clientService := services.NewClientService(clientsCollection, counters, dispatcher)
	projectService := services.NewProjectService(projectsCollection, clientsCollection, usersCollection, counters, automation, dispatcher, strict)
	invoiceService := services.NewInvoiceService(invoicesCollection, clientsCollection, counters, settingsService, dispatcher, strict)

	if password, err := userService.EnsureBootstrapAdmin(ctx, os.Getenv("BOOTSTRAP_ADMIN_USERNAME")); err != nil {
		log.Fatal("Bootstrap admin creation failed:", err)
	} else if password != "" {
		logging.Logger.Warnf("Event ID: BOOTSTRAP_ADMIN_CREATED, Description: Seeded admin account, temporary password: %s", password)
	}

	loginHandler := handlers.NewLoginHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	leadHandler := handlers.NewLeadHandler(leadService)
	clientHandler := handlers.NewClientHandler(clientService)
	projectHandler := handlers.NewProjectHandler(projectService, storage)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub, logging.Logger)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	router := mux.NewRouter()

	router.HandleFunc("/api/login", loginHandler.Login).Methods("POST")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("CRM service is running"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.JWTAuthMiddleware(blacklist))

	protected.HandleFunc("/logout", loginHandler.Logout).Methods("POST")

	protected.HandleFunc("/users", userHandler.Register).Methods("POST")
	protected.HandleFunc("/users", userHandler.GetAll).Methods("GET")
	protected.HandleFunc("/users/{userID}", userHandler.Update).Methods("PUT")

	protected.HandleFunc("/leads", leadHandler.Create).Methods("POST")
	protected.HandleFunc("/leads", leadHandler.GetAll).Methods("GET")
	protected.HandleFunc("/leads/{leadID}", leadHandler.GetByID).Methods("GET")
	protected.HandleFunc("/leads/{leadID}/status", leadHandler.ChangeStatus).Methods("PUT")
	protected.HandleFunc("/leads/{leadID}/activity", leadHandler.Touch).Methods("POST")
	protected.HandleFunc("/leads/{leadID}/convert", leadHandler.Convert).Methods("POST")

	protected.HandleFunc("/clients", clientHandler.Create).Methods("POST")
	protected.HandleFunc("/clients", clientHandler.GetAll).Methods("GET")
	protected.HandleFunc("/clients/{clientID}", clientHandler.GetByID).Methods("GET")
	protected.HandleFunc("/clients/{clientID}", clientHandler.Update).Methods("PUT")

	protected.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	protected.HandleFunc("/projects", projectHandler.GetAll).Methods("GET")
	protected.HandleFunc("/projects/{projectID}", projectHandler.GetByID).Methods("GET")
	protected.HandleFunc("/projects/{projectID}/stage", projectHandler.ChangeStage).Methods("PUT")
	protected.HandleFunc("/projects/{projectID}/milestones", projectHandler.AddMilestone).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}", projectHandler.UpdateMilestone).Methods("PUT")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/skip", projectHandler.SkipMilestone).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/tasks", projectHandler.AddTask).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/tasks/{taskID}", projectHandler.UpdateTask).Methods("PUT")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/tasks/{taskID}/complete", projectHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/tasks/{taskID}/comments", projectHandler.AddComment).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/milestones/{milestoneID}/tasks/{taskID}/attachments", projectHandler.UploadAttachment).Methods("POST")
	protected.HandleFunc("/projects/{projectID}/attachments/{ref}", projectHandler.DownloadAttachment).Methods("GET")

	protected.HandleFunc("/invoices", invoiceHandler.Create).Methods("POST")
	protected.HandleFunc("/invoices", invoiceHandler.GetAll).Methods("GET")
	protected.HandleFunc("/invoices/{invoiceID}", invoiceHandler.GetByID).Methods("GET")
	protected.HandleFunc("/invoices/{invoiceID}", invoiceHandler.Update).Methods("PUT")
	protected.HandleFunc("/invoices/{invoiceID}/payments", invoiceHandler.AddPayment).Methods("POST")
	protected.HandleFunc("/invoices/{invoiceID}/status", invoiceHandler.ChangeStatus).Methods("PUT")

	protected.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	protected.HandleFunc("/notifications/history", notificationHandler.History).Methods("GET")
	protected.HandleFunc("/notifications/stream", notificationHandler.Stream).Methods("GET")
	protected.HandleFunc("/notifications/{notificationID}/read", notificationHandler.MarkRead).Methods("PUT")
	protected.HandleFunc("/notifications/{notificationID}", notificationHandler.Delete).Methods("DELETE")

	protected.HandleFunc("/settings", settingsHandler.Get).Methods("GET")
	protected.HandleFunc("/settings", settingsHandler.Patch).Methods("PATCH")

	corsRouter := enableCORS(middleware.Metrics(router))

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	logging.Logger.Infof("Event ID: SERVER_START, Description: CRM service running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, corsRouter))
}
