package cache

import "strings"

const (
	GlobalKeyPrefix = "quizingest"

	ServiceQuestion = "question"
	ServiceQueue    = "queue"

	ObjectParsed = "parsed"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// QuestionsKey is where the parsed question list of a quiz is cached.
func QuestionsKey(quizID string) string {
	return GenerateCacheKey(ServiceQuestion, ObjectParsed, quizID)
}

// QueueKey names one structure of the job queue for topic, e.g. QueueKey("quiz-parse", "wait").
func QueueKey(topic, structure string) string {
	return GenerateCacheKey(ServiceQueue, topic, structure)
}
