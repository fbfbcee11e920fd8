package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/testutil"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	queued []queuedJob
}

type queuedJob struct {
	name  string
	delay time.Duration
}

func (f *fakeDispatcher) Enqueue(ctx context.Context, name string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, queuedJob{name: name})
	return nil
}

func (f *fakeDispatcher) EnqueueIn(ctx context.Context, delay time.Duration, name string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, queuedJob{name: name, delay: delay})
	return nil
}

type fakeMailer struct {
	fail bool
	sent []string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, to)
	return nil
}

type world struct {
	db         *gorm.DB
	notifier   *Notifier
	dispatcher *fakeDispatcher
	mailer     *fakeMailer
	subscriber *models.User
	commenter  *models.User
	mod        *models.Mod
	comment    *models.Comment
}

// newWorld builds a mod with one prior commenter (and therefore subscriber)
// plus a fresh comment from a second user awaiting fan-out.
func newWorld(t *testing.T) *world {
	t.Helper()
	db := testutil.NewDB(t)
	dispatcher := &fakeDispatcher{}
	mailer := &fakeMailer{}
	log := testutil.NewLogger(t)

	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Terrain Overhaul")
	subscriber := testutil.CreateUser(t, db, "watcher", models.RoleMember)
	testutil.CreateComment(t, db, subscriber, mod, "Looks promising")

	commenter := testutil.CreateUser(t, db, "replier", models.RoleMember)
	comment := testutil.CreateComment(t, db, commenter, mod, "Here is my feedback")

	cfg := utils.EmailConfig{AppURL: "https://forge.test", FromEmail: "no-reply@forge.test"}
	return &world{
		db:         db,
		notifier:   New(db, dispatcher, mailer, cfg, log),
		dispatcher: dispatcher,
		mailer:     mailer,
		subscriber: subscriber,
		commenter:  commenter,
		mod:        mod,
		comment:    comment,
	}
}

func payloadFor(t *testing.T, c *models.Comment) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(CommentJobPayload{CommentID: c.ID})
	require.NoError(t, err)
	return raw
}

func notificationCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&n).Error)
	return n
}

func TestCommentCreatedEnqueuesBothJobs(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.notifier.CommentCreated(context.Background(), w.comment))

	require.Len(t, w.dispatcher.queued, 2)
	assert.Equal(t, JobCommentSpamCheck, w.dispatcher.queued[0].name)
	assert.Equal(t, JobCommentNotify, w.dispatcher.queued[1].name)
	assert.Equal(t, NotifyDelay, w.dispatcher.queued[1].delay)
}

func TestFanOutNotifiesSubscribersOnce(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))
	assert.EqualValues(t, 1, notificationCount(t, w.db))

	var n models.Notification
	require.NoError(t, w.db.First(&n).Error)
	assert.Equal(t, w.subscriber.ID, n.UserID)
	assert.Equal(t, CommentCreatedClass, n.Type)
	assert.Equal(t, "replier commented on Terrain Overhaul", n.Message)

	// Running the job again (queue retry, duplicate delivery) is a no-op.
	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))
	assert.EqualValues(t, 1, notificationCount(t, w.db))
	assert.Empty(t, w.mailer.sent)
}

func TestFanOutSkipsDeletedComment(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.db.Delete(w.comment).Error)

	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))

	assert.EqualValues(t, 0, notificationCount(t, w.db))
	var logs int64
	require.NoError(t, w.db.Model(&models.NotificationLog{}).Count(&logs).Error)
	assert.EqualValues(t, 0, logs)
}

func TestFanOutMailsOptedInSubscribers(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	testutil.VerifyEmail(t, w.db, w.subscriber)
	require.NoError(t, w.db.Model(&models.NotificationPreferences{}).
		Where("user_id = ?", w.subscriber.ID).
		Update("email_on_comments", true).Error)

	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))

	assert.Equal(t, []string{w.subscriber.Email}, w.mailer.sent)
}

func TestFanOutSkipsMailForUnverifiedEmail(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.db.Model(&models.NotificationPreferences{}).
		Where("user_id = ?", w.subscriber.ID).
		Update("email_on_comments", true).Error)

	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))

	assert.Empty(t, w.mailer.sent)
	assert.EqualValues(t, 1, notificationCount(t, w.db))
}

func TestMailFailureDoesNotFailJob(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.mailer.fail = true
	testutil.VerifyEmail(t, w.db, w.subscriber)
	require.NoError(t, w.db.Model(&models.NotificationPreferences{}).
		Where("user_id = ?", w.subscriber.ID).
		Update("email_on_comments", true).Error)

	require.NoError(t, w.notifier.HandleCommentNotify(ctx, payloadFor(t, w.comment)))
	assert.EqualValues(t, 1, notificationCount(t, w.db))
}

func TestSpamCheckSetsStatus(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	require.NoError(t, w.notifier.HandleSpamCheck(ctx, payloadFor(t, w.comment)))
	var c models.Comment
	require.NoError(t, w.db.First(&c, "id = ?", w.comment.ID).Error)
	assert.Equal(t, models.SpamClean, c.SpamStatus)
	assert.NotNil(t, c.SpamCheckedAt)

	spam := testutil.CreateComment(t, w.db, w.commenter, w.mod, "Free Nitro here, click here to claim")
	require.NoError(t, w.notifier.HandleSpamCheck(ctx, payloadFor(t, spam)))
	// Fresh dest: reusing c would carry its primary key into the query.
	var flagged models.Comment
	require.NoError(t, w.db.First(&flagged, "id = ?", spam.ID).Error)
	assert.Equal(t, models.SpamFlagged, flagged.SpamStatus)
}
