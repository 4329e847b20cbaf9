package repositories

import (
	"os"
	"time"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"

	"github.com/gocql/gocql"
)

// NotificationArchive keeps the append-heavy notification history in
// Cassandra, clustered per user by creation time, separate from the Mongo
// inbox the API serves reads from.
type NotificationArchive struct {
	session *gocql.Session
}

func NewNotificationArchive() (*NotificationArchive, error) {
	db := os.Getenv("CASS_DB")
	if db == "" {
		db = "127.0.0.1"
	}

	cluster := gocql.NewCluster(db)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS crm_notifications
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		session.Close()
		return nil, err
	}
	session.Close()

	cluster.Keyspace = "crm_notifications"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("Event ID: CASS_CONNECTED, Description: Connected to Cassandra notification archive.")
	return &NotificationArchive{session: session}, nil
}

func (a *NotificationArchive) Close() {
	a.session.Close()
}

// EnsureTable creates the archive table when missing.
func (a *NotificationArchive) EnsureTable() error {
	return a.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			username TEXT,
			user_id TEXT,
			type TEXT,
			title TEXT,
			message TEXT,
			actor_id TEXT,
			created_at TIMESTAMP,
			PRIMARY KEY ((username), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
}

// Append stores one fan-out notification row.
func (a *NotificationArchive) Append(n models.Notification) error {
	id, err := gocql.ParseUUID(n.ID)
	if err != nil {
		id = gocql.TimeUUID()
	}
	return a.session.Query(
		`INSERT INTO notifications (id, username, user_id, type, title, message, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.Username, n.UserID, n.Type, n.Title, n.Message, n.ActorID, n.CreatedAt,
	).Exec()
}

// HistoryByUsername returns the archived rows for one user, newest first.
func (a *NotificationArchive) HistoryByUsername(username string, limit int) ([]models.Notification, error) {
	iter := a.session.Query(
		`SELECT id, user_id, username, type, title, message, actor_id, created_at
		 FROM notifications WHERE username = ? LIMIT ?`, username, limit).Iter()

	var notifications []models.Notification
	var n models.Notification
	var id gocql.UUID
	var createdAt time.Time
	for iter.Scan(&id, &n.UserID, &n.Username, &n.Type, &n.Title, &n.Message, &n.ActorID, &createdAt) {
		n.ID = id.String()
		n.CreatedAt = createdAt
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return notifications, nil
}
