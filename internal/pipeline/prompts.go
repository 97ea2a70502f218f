package pipeline

import "github.com/newspulse/enrich/internal/infer/schema"

// Prompts sent to the inference service. Each stage pairs one of these with
// the matching response schema below; prompt text and schema must agree on
// field names since payloads are validated structurally before decoding.

const normalizePrompt = `You are a keyword normalization assistant. Given the following list of keywords:
1. find similar keywords and merge them,
2. translate all keywords into English,
3. standardize naming using uppercase letters and underscores,
4. create umbrella/superset keywords where appropriate.
Return the result as a list of unique keywords.

Input Keywords:`

const annotatePrompt = `You are an expert news analyzer. You will receive a batch of news articles. For each article, perform the following:

1. Analyze the article content carefully.
2. Extract up to 10 relevant keywords that align with the provided reference keywords.
3. Infer the main topic of the article (3-5 words, very specific).
4. Infer the highlighted theme of the article (3-5 words, broader/general category).
5. Provide a concise summary (approx. 300 characters) that reflects the keywords, topic, and theme.
6. Indicate the presence of political unrest: answer strictly with true or false.
7. Indicate the relevance to the national situation: answer strictly with true or false.
8. Indicate the presence of violence: answer strictly with true or false.

Process each article independently but maintain a consistent style across the batch.`

const highlightPrompt = `You are a news analysis assistant. You will receive an array of news summaries. Your task is to identify and report the main highlight of the current news, focusing on the most frequently reported topic or theme.

The report must:
- Be approximately 100 words.
- Directly describe the main highlight without preamble or introduction. Begin immediately with the report.
- Emphasize any instances of political unrest, protests, or reported violence.
- Explain why these events are occurring, including underlying causes or tensions indicated in the news.
- Capture the key trends, patterns, and significance of the news items collectively.
- Be factual and concise while providing sufficient context for understanding the events.`

const themePrompt = `You are an expert in political science thematic analysis. You will receive an array of news entries containing a row number, a summary, a topic, and a highlighted theme. For each entry:

1. Assign a keyword (kw) of at most 3 words, in ALL CAPS, capturing the specific subject of the entry.
2. Assign a theme (thm) in ALL CAPS, a broader category the keyword belongs to.
3. Provide rx_kw: a concise rationale (max 200 characters) for the keyword, grounded in the summary.
4. Provide rx_thm: a concise rationale (max 200 characters) for the theme.

Every entry in the output must retain its original rownum. One theme may contain multiple keywords; one keyword must only belong to one theme.`

const reducePrompt = `You are an expert in political science thematic analysis. Your task is to reduce and generalize keywords while ensuring consistent themes.

# Procedure

1. You will receive an array of entries containing:
   - rownum: row number of the original dataset
   - kw: keyword
   - thm: theme
   - rx_kw: rationale for the keyword
   - rx_thm: rationale for the theme

2. Merge similar or overlapping keywords into a generalized keyword (max 3 words) based on their theme and rationales.
   - One theme may contain multiple keywords.
   - One keyword must only belong to one theme.

3. Continue merging until each theme contains about 3-5 generalized keywords. If needed, revise the theme name so it accurately represents the merged keywords.

4. For each entry, return:
   - The original rownum
   - The new generalized kw in ALL CAPS
   - The revised or confirmed thm in ALL CAPS
   - rx_kw: concise rationale (max 200 characters) stating which keywords were merged
   - rx_thm: concise rationale (max 200 characters) explaining the generalized theme

# Rules

1. Always check that a proposed keyword is relevant to its theme and rationales.
2. Keywords must be a maximum of 3 words.
3. Keywords and themes must be written in CAPITALS.
4. Every entry in the output must retain its rownum.
5. Each theme must contain AT LEAST 2 keywords.`

var (
	keywordListSchema = schema.ListOf(schema.String())

	annotationSchema = schema.ListOf(schema.Record("Summary",
		schema.Field{Name: "rownum", Schema: schema.Integer()},
		schema.Field{Name: "keyword", Schema: schema.ListOf(schema.String())},
		schema.Field{Name: "topic", Schema: schema.String()},
		schema.Field{Name: "highlight", Schema: schema.String()},
		schema.Field{Name: "summary", Schema: schema.String()},
		schema.Field{Name: "is_unrest", Schema: schema.Boolean()},
		schema.Field{Name: "is_ina", Schema: schema.Boolean()},
		schema.Field{Name: "is_violent", Schema: schema.Boolean()},
	))

	highlightSchema = schema.String()

	themeListSchema = schema.ListOf(schema.Record("Theme",
		schema.Field{Name: "rownum", Schema: schema.Integer()},
		schema.Field{Name: "kw", Schema: schema.String()},
		schema.Field{Name: "thm", Schema: schema.String()},
		schema.Field{Name: "rx_kw", Schema: schema.String()},
		schema.Field{Name: "rx_thm", Schema: schema.String()},
	))
)
