package domain

// Built-in prompt templates. These seed the prompt store on first start and
// double as the fallback when no version is active. Placeholders are replaced
// verbatim before the LLM call.

// DefaultScoringTemplate asks for a strict JSON rating of one message.
const DefaultScoringTemplate = `You are an email triage assistant. Rate the relevance of the email below for a busy professional.

Respond with ONLY a JSON object, no other text:
{"score": <integer 1-10>, "confidence": <float 0-1>, "category": "<work|personal|newsletter|notification|spam|unknown>", "reasoning": "<one short sentence>"}

A score of 10 means urgent and important, 1 means safe to ignore.

EMAIL:
From: {{sender}}
Subject: {{subject}}

{{body}}`

// DefaultDigestTemplate asks for a short natural-language synthesis over the
// relevant messages of one window.
const DefaultDigestTemplate = `You are an email digest assistant. Write a concise digest of the relevant emails below.

Guidelines:
- Group related emails together.
- Lead with the most urgent items.
- Mention senders by name.
- At most {{max_sentences}} sentences, plain prose, no markdown.

EMAILS:
{{messages}}

DIGEST:`
