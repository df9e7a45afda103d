package prompt

// QueryParser asks the model to split a raw question into a date-free query
// and an optional calendar date or date range.
var QueryParser = Must(New("query_parser", `You are a query parser.

From the user query:
- Extract any referenced date or date range.
- Remove the date information from the query.
- Classify the query: "specific_fact" when it asks for one precise fact, otherwise "broad_temporal".
- Do not answer the question.

Output JSON with this exact schema:
{
  "clean_query": string,
  "date": string | null,
  "date_range": { "start": string, "end": string } | null,
  "query_type": "broad_temporal" | "specific_fact"
}
Dates must be in ISO format (YYYY-MM-DD).

User query: {{.Input}}

Output only valid JSON, no additional text.`))

// AnswerSpecificFact answers a single question strictly from the supplied context.
var AnswerSpecificFact = Must(New("answer_specific_fact", `You are a helpful assistant. Answer the question using ONLY the provided context.
If the context does not contain the answer, say you don't know.

<context>
{{.Context}}
</context>

Question: {{.Input}}
Answer:`))

// AnswerBroadTemporal summarises one event per retrieved article.
var AnswerBroadTemporal = Must(New("answer_broad_temporal", `You are a helpful assistant. Answer the question using ONLY the provided context.
If the context does not contain the answer, say you don't know.
Do not use prior knowledge or make up information.
Quote the exact sentence(s) from the context that support each point.

You are given several news articles. Each article describes ONE distinct event.
For EACH article:
- extract exactly one main event, skipping background details
- do not skip the article and do not extract more than one event from it

Output one bullet per article. Each bullet must include the article title.

<context>
{{.Context}}
</context>

Question: {{.Input}}
Answer:`))
