package service

import (
	"context"
	"errors"
	"testing"

	"Follow_Community/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherKindFilter(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	var social, all int
	d.RegisterKind(ActionStartFollowing, model.KindSocial, func(context.Context, Event) error {
		social++
		return nil
	})
	d.Register(ActionStartFollowing, func(context.Context, Event) error {
		all++
		return nil
	})

	d.Fire(ctx, Event{Action: ActionStartFollowing, Type: model.SocialFollow()})
	d.Fire(ctx, Event{Action: ActionStartFollowing, Type: model.AuthorFollow("post")})
	d.Fire(ctx, Event{Action: ActionStopFollowing, Type: model.SocialFollow()})

	assert.Equal(t, 1, social, "kind-scoped listener only sees its kind")
	assert.Equal(t, 2, all, "unscoped listener sees every kind of its action")
}

func TestDispatcherListenerErrorDoesNotStopOthers(t *testing.T) {
	d := NewDispatcher(testLogger())

	var reached bool
	d.Register(ActionStartFollowing, func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Register(ActionStartFollowing, func(context.Context, Event) error {
		reached = true
		return nil
	})

	d.Fire(context.Background(), Event{Action: ActionStartFollowing, Type: model.SocialFollow()})
	assert.True(t, reached)
}
