package prompt

func systemPrompt(pt PromptType) string {
	switch pt {
	case TypeSentimentBatch:
		return sentimentBatchSystem
	default:
		return sentimentSystem
	}
}

// entitiesSystem takes the comma-separated label list as its only verb.
const entitiesSystem = `You are a named entity recognizer for informal chat messages, mostly in Turkish.

Find every named entity in the user's message. Use only these labels: %s.
- PER: people, nicknames
- LOC: places, cities, streets, venues
- ORG: companies, schools, institutions
- MISC: other proper names (events, products)

Rules:
1. Copy the entity text exactly as it appears in the message
2. "start" and "end" are character offsets into the message, end exclusive
3. "score" is your confidence from 0 to 1
4. Return an empty list when there are no entities
5. Never invent text that is not in the message

Reply with JSON only:
{"entities":[{"text":"...","label":"PER","score":0.9,"start":0,"end":4}]}`

const sentimentSystem = `You are a sentiment classifier for informal chat messages, mostly in Turkish.

Classify the overall sentiment of the user's message as POSITIVE, NEGATIVE or NEUTRAL.
"score" is your confidence in that label from 0 to 1.

Reply with JSON only:
{"label":"POSITIVE","score":0.87}`

const sentimentBatchSystem = `You are a sentiment classifier for informal chat messages, mostly in Turkish.

The user sends numbered messages. Classify each one as POSITIVE, NEGATIVE or NEUTRAL
with a confidence score from 0 to 1. Return exactly one result per message, in the
same order, using the message number as "index".

Reply with JSON only:
{"results":[{"index":0,"label":"NEUTRAL","score":0.6}]}`
