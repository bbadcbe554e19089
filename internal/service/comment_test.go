package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanisg222/deploymentcrm/internal/model"
)

func newCommentSvc(leads *fakeLeads, comments ...model.LeadComment) (*CommentService, *fakeComments, *recordingLog) {
	store := newFakeComments(comments...)
	log := &recordingLog{}
	svc := NewCommentService(store, leads, log)
	svc.now = func() time.Time { return testNow }
	return svc, store, log
}

func commentInput(t *testing.T, body string) CommentInput {
	var in CommentInput
	decode(t, body, &in)
	return in
}

func TestAddComment(t *testing.T) {
	svc, store, log := newCommentSvc(newFakeLeads(seedLead()))

	c, err := svc.Add(context.Background(), admin, commentInput(t, `{"leadId":"4","description":"  Visited site, liked 3BHK  "}`))
	require.NoError(t, err)
	assert.Equal(t, "Visited site, liked 3BHK", c.Description)
	assert.Equal(t, uint64(4), c.LeadID)
	assert.Equal(t, uint64(1), *c.UserID)
	assert.Equal(t, testNow, c.CreatedAt)
	assert.Contains(t, store.rows, c.ID)

	require.Len(t, log.entries, 1)
	e := log.entries[0]
	assert.Equal(t, model.ActionDescriptionAdded, e.Action)
	assert.Equal(t, model.EntityComment, e.EntityType)
	assert.Equal(t, c.ID, e.EntityID)
	assert.Equal(t, "Asha Rao", e.EntityName)
	assert.Equal(t, "Comment added to lead - Asha Rao", e.Description)
	assert.Equal(t, model.CommentAdded{CommentLength: 24}, e.Metadata)
	assert.Equal(t, uint64(4), *e.LeadID)
}

func TestAddComment_UnknownLeadFallsBack(t *testing.T) {
	svc, _, log := newCommentSvc(newFakeLeads())

	_, err := svc.Add(context.Background(), admin, commentInput(t, `{"leadId":999999,"description":"orphan"}`))
	require.NoError(t, err)
	require.Len(t, log.entries, 1)
	assert.Equal(t, "Lead #999999", log.entries[0].EntityName)
	assert.Equal(t, "Comment added to lead - Lead #999999", log.entries[0].Description)
}

func TestAddComment_LookupFailureFallsBack(t *testing.T) {
	leads := newFakeLeads(seedLead())
	leads.failGet = errors.New("db gone")
	svc, _, log := newCommentSvc(leads)

	_, err := svc.Add(context.Background(), admin, commentInput(t, `{"leadId":4,"description":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "Lead #4", log.entries[0].EntityName)
}

func TestAddComment_BrokerScope(t *testing.T) {
	other := seedLead()
	other.BrokerID = u64(8)
	svc, store, log := newCommentSvc(newFakeLeads(other))

	_, err := svc.Add(context.Background(), broker7, commentInput(t, `{"leadId":4,"description":"x"}`))
	requireCode(t, err, CodeNotFound)
	assert.Empty(t, store.rows)
	assert.Empty(t, log.entries)
}

func TestAddComment_AdminAttributesUser(t *testing.T) {
	svc, _, log := newCommentSvc(newFakeLeads(seedLead()))
	c, err := svc.Add(context.Background(), admin, commentInput(t, `{"leadId":4,"userId":9,"description":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), *c.UserID)
	assert.Equal(t, uint64(9), *log.entries[0].UserID)
}

func TestAddComment_Validation(t *testing.T) {
	cases := map[string]string{
		`{"description":"x"}`:                         "MISSING_LEAD_ID",
		`{"leadId":null,"description":"x"}`:           "MISSING_LEAD_ID",
		`{"leadId":"abc","description":"x"}`:          "INVALID_LEAD_ID",
		`{"leadId":4}`:                                "MISSING_DESCRIPTION",
		`{"leadId":4,"description":""}`:               "MISSING_DESCRIPTION",
		`{"leadId":4,"description":"   "}`:            "EMPTY_DESCRIPTION",
		`{"leadId":4,"description":"x","userId":"u"}`: "INVALID_USER_ID",
	}
	for body, code := range cases {
		svc, store, log := newCommentSvc(newFakeLeads(seedLead()))
		_, err := svc.Add(context.Background(), admin, commentInput(t, body))
		requireCode(t, err, code)
		assert.Empty(t, store.rows, body)
		assert.Empty(t, log.entries, body)
	}
}

func TestDeleteComment(t *testing.T) {
	existing := model.LeadComment{ID: 31, LeadID: 4, UserID: u64(9), Description: "old"}
	svc, store, log := newCommentSvc(newFakeLeads(seedLead()), existing)

	require.NoError(t, svc.Delete(context.Background(), admin, 31))
	assert.Equal(t, []uint64{31}, store.deleted)
	require.Len(t, log.entries, 1)
	e := log.entries[0]
	assert.Equal(t, model.ActionDescriptionDeleted, e.Action)
	assert.Equal(t, "Comment deleted from lead - Asha Rao", e.Description)
	assert.Equal(t, model.Deletion{Reason: model.ReasonManualDeletion}, e.Metadata)
	assert.Equal(t, uint64(4), *e.LeadID)
}

func TestDeleteComment_MissingIsIdempotent(t *testing.T) {
	svc, store, log := newCommentSvc(newFakeLeads(seedLead()))

	require.NoError(t, svc.Delete(context.Background(), admin, 77))
	require.NoError(t, svc.Delete(context.Background(), admin, 77))
	assert.Equal(t, []uint64{77, 77}, store.deleted)
	assert.Empty(t, log.entries)
}

func TestDeleteComment_AdminOnly(t *testing.T) {
	svc, _, _ := newCommentSvc(newFakeLeads(seedLead()), model.LeadComment{ID: 31, LeadID: 4})
	requireCode(t, svc.Delete(context.Background(), broker7, 31), CodeForbidden)
}

func TestListComments(t *testing.T) {
	leads := newFakeLeads(seedLead())
	svc, _, _ := newCommentSvc(leads, model.LeadComment{ID: 1, LeadID: 4}, model.LeadComment{ID: 2, LeadID: 5})

	out, err := svc.List(context.Background(), broker7, 4)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.List(context.Background(), brokerLost, 4)
	requireCode(t, err, CodeNotFound)

	empty, err := svc.List(context.Background(), admin, 12345)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRequireIDs(t *testing.T) {
	_, err := RequireLeadID("")
	requireCode(t, err, "MISSING_LEAD_ID")
	_, err = RequireLeadID("4x")
	requireCode(t, err, "INVALID_LEAD_ID")
	id, err := RequireCommentID("12")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	_, err = RequireCommentID("")
	requireCode(t, err, "MISSING_COMMENT_ID")
	_, err = RequireCommentID("-2")
	requireCode(t, err, "INVALID_COMMENT_ID")
}
