package hub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"collab-hub/domain"
)

func TestRegistry_Add_One_Topic_One_Handler(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given no handler is registered
	req.Zero(registry.TopicCount())

	// When a handler subscribes a topic
	sub := registry.Add(domain.TopicActivity, func(msg domain.Message) {})

	// Then
	req.Equal(domain.TopicActivity, sub.Topic)
	req.Equal(1, registry.TopicCount())
	req.Len(registry.HandlersFor(domain.TopicActivity), 1)
}

func TestRegistry_HandlersFor_Registration_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var calls []int

	// Given three handlers registered on the same topic
	registry.Add(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 1) })
	registry.Add(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 2) })
	registry.Add(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 3) })

	// When they are invoked as returned
	for _, h := range registry.HandlersFor(domain.TopicActivity) {
		h(domain.Message{})
	}

	// Then the order matches the registration order
	req.Equal([]int{1, 2, 3}, calls)
}

func TestRegistry_Remove_Keeps_Other_Handlers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var calls []int

	sub1 := registry.Add(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 1) })
	registry.Add(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 2) })

	// When the first handler is removed
	registry.Remove(sub1)

	for _, h := range registry.HandlersFor(domain.TopicActivity) {
		h(domain.Message{})
	}

	// Then only the second one remains
	req.Equal([]int{2}, calls)
}

func TestRegistry_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	sub := registry.Add(domain.TopicActivity, func(msg domain.Message) {})
	registry.Remove(sub)
	registry.Remove(sub)

	// Then the topic is gone and nothing blew up
	req.Zero(registry.TopicCount())
	req.Nil(registry.HandlersFor(domain.TopicActivity))
}
