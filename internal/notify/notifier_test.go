package notify

import (
	"context"
	"fmt"
	"testing"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Notification{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, deviceToken string) model.User {
	t.Helper()
	u := model.User{
		Email:       fmt.Sprintf("%s@example.fr", uuid.NewString()[:8]),
		Name:        "Sophie Martin",
		Password:    "x",
		Role:        model.RolePlanner,
		DeviceToken: deviceToken,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

type recordingPush struct {
	tokens []string
	fail   bool
}

func (p *recordingPush) Send(_ context.Context, token, _, _, _ string) error {
	p.tokens = append(p.tokens, token)
	if p.fail {
		return fmt.Errorf("fcm unavailable")
	}
	return nil
}

type recordingMail struct {
	to   []string
	fail bool
}

func (m *recordingMail) Send(to, _, _ string) error {
	m.to = append(m.to, to)
	if m.fail {
		return fmt.Errorf("relay refused connection")
	}
	return nil
}

type recordingHub struct {
	users [][2]string
}

func (h *recordingHub) SendToUser(userID string, message []byte) {
	h.users = append(h.users, [2]string{userID, string(message)})
}

func newTestService(t *testing.T, db *gorm.DB, push pushSender, mail mailSender, hub socketSender) *Service {
	t.Helper()
	return NewService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		push,
		mail,
		hub,
		zap.NewNop(),
	)
}

func TestNotifyWritesRecord(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, nil, nil, nil)
	user := seedUser(t, db, "")

	svc.Notify(context.Background(), user.ID, Event{
		Title: "Nouveau devis DEV-20260512-0001",
		Body:  "Un devis vous attend.",
		Link:  "/documents",
		Meta:  map[string]string{"quote_id": uuid.NewString()},
	})

	var n model.Notification
	if err := db.First(&n, "recipient_id = ?", user.ID).Error; err != nil {
		t.Fatalf("notification record: %v", err)
	}
	if n.Title != "Nouveau devis DEV-20260512-0001" || n.Link != "/documents" {
		t.Errorf("record = %q / %q", n.Title, n.Link)
	}
	if n.Read {
		t.Error("new notification must be unread")
	}
	if len(n.Meta) == 0 {
		t.Error("meta payload was dropped")
	}
}

func TestNotifyFansOutToAllChannels(t *testing.T) {
	db := openTestDB(t)
	push := &recordingPush{}
	mail := &recordingMail{}
	hub := &recordingHub{}
	svc := newTestService(t, db, push, mail, hub)
	user := seedUser(t, db, "fcm-token-1")

	svc.Notify(context.Background(), user.ID, Event{Title: "Paiement reçu", Body: "500.00 € réglés."})

	if len(push.tokens) != 1 || push.tokens[0] != "fcm-token-1" {
		t.Errorf("push tokens = %v", push.tokens)
	}
	if len(mail.to) != 1 || mail.to[0] != user.Email {
		t.Errorf("mail recipients = %v, want account address", mail.to)
	}
	if len(hub.users) != 1 || hub.users[0][0] != user.ID.String() {
		t.Errorf("hub deliveries = %v", hub.users)
	}
}

func TestNotifyEmailOverrideWins(t *testing.T) {
	db := openTestDB(t)
	mail := &recordingMail{}
	svc := newTestService(t, db, nil, mail, nil)
	user := seedUser(t, db, "")

	svc.Notify(context.Background(), user.ID, Event{
		Title: "Nouveau devis",
		Email: "camille.jordan@example.fr",
	})

	if len(mail.to) != 1 || mail.to[0] != "camille.jordan@example.fr" {
		t.Errorf("mail recipients = %v, want the override address", mail.to)
	}
}

func TestNotifySkipsPushWithoutDeviceToken(t *testing.T) {
	db := openTestDB(t)
	push := &recordingPush{}
	svc := newTestService(t, db, push, nil, nil)
	user := seedUser(t, db, "")

	svc.Notify(context.Background(), user.ID, Event{Title: "Nouveau devis"})

	if len(push.tokens) != 0 {
		t.Errorf("push sent despite missing device token: %v", push.tokens)
	}
}

func TestNotifySwallowsChannelFailures(t *testing.T) {
	db := openTestDB(t)
	push := &recordingPush{fail: true}
	mail := &recordingMail{fail: true}
	svc := newTestService(t, db, push, mail, &recordingHub{})
	user := seedUser(t, db, "fcm-token-1")

	// Must not panic and must still write the in-app record.
	svc.Notify(context.Background(), user.ID, Event{Title: "Facture en retard"})

	var n int64
	db.Model(&model.Notification{}).Where("recipient_id = ?", user.ID).Count(&n)
	if n != 1 {
		t.Errorf("notification records = %d, want 1", n)
	}
}

func TestMailerMessageHeaderOrder(t *testing.T) {
	m := NewMailer(SMTPConfig{
		Host:      "smtp.example.fr",
		FromName:  "Atelier Mariage",
		FromEmail: "no-reply@atelier-mariage.fr",
	})

	want := "From: Atelier Mariage <no-reply@atelier-mariage.fr>\r\n" +
		"To: camille.jordan@example.fr\r\n" +
		"Subject: Nouveau devis\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Un devis vous attend."

	first := m.buildMessage("camille.jordan@example.fr", "Nouveau devis", "Un devis vous attend.")
	if first != want {
		t.Errorf("message = %q, want %q", first, want)
	}
	for i := 0; i < 10; i++ {
		if m.buildMessage("camille.jordan@example.fr", "Nouveau devis", "Un devis vous attend.") != first {
			t.Fatal("message changed between builds")
		}
	}
}

func TestNotifyUnknownRecipientStillRecords(t *testing.T) {
	db := openTestDB(t)
	push := &recordingPush{}
	mail := &recordingMail{}
	svc := newTestService(t, db, push, mail, nil)
	ghost := uuid.New()

	svc.Notify(context.Background(), ghost, Event{Title: "Nouveau devis"})

	var n int64
	db.Model(&model.Notification{}).Where("recipient_id = ?", ghost).Count(&n)
	if n != 1 {
		t.Errorf("notification records = %d, want 1", n)
	}
	if len(push.tokens) != 0 || len(mail.to) != 0 {
		t.Error("no delivery should happen for an unknown account")
	}
}
