// Command backfill heals historical project documents: it fills in missing
// guidance defaults, re-derives milestone statuses and rebuilds activity
// stats. Safe to re-run; untouched documents are not written back.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logging.InitLogger()

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_FILE_MISSING, Description: No .env file found, relying on process environment: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
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
	projectsCollection := client.Database(dbName).Collection("projects")
	automation := services.NewAutomationEngine()

	cursor, err := projectsCollection.Find(ctx, bson.M{})
	if err != nil {
		log.Fatal("Failed to load projects:", err)
	}
	defer cursor.Close(ctx)

	now := time.Now()
	scanned, updated := 0, 0
	for cursor.Next(ctx) {
		var project models.Project
		if err := cursor.Decode(&project); err != nil {
			log.Fatal("Failed to decode project:", err)
		}
		scanned++

		changed := automation.ApplyGuidanceDefaults(&project)
		for i := range project.Milestones {
			if automation.RecomputeMilestoneStatus(&project.Milestones[i], now) {
				changed = true
			}
		}
		before := project.ActivityStats
		automation.RecomputeActivityStats(&project)
		if project.ActivityStats != before {
			changed = true
		}

		if !changed {
			continue
		}

		project.UpdatedAt = now
		if _, err := projectsCollection.ReplaceOne(ctx, bson.M{"_id": project.ID}, project); err != nil {
			log.Fatal("Failed to save project:", err)
		}
		logging.Logger.Infof("Event ID: BACKFILL_PROJECT_UPDATED, Description: Backfilled project %s", project.Code)
		updated++
	}
	if err := cursor.Err(); err != nil {
		log.Fatal("Cursor iteration failed:", err)
	}

	logging.Logger.Infof("Event ID: BACKFILL_DONE, Description: Scanned %d projects, updated %d", scanned, updated)
}
