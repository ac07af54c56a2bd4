package judge

// qualityPromptTemplate scores groundedness and citation correctness in one
// judgment. Placeholders: query, formatted evidence chunks, answer.
const qualityPromptTemplate = `You are an expert evaluator for a Retrieval-Augmented Generation (RAG) system
focused on ML failure modes in space debris tracking and collision avoidance.

You will be given:
1. A user QUERY
2. The RETRIEVED CHUNKS that were provided as context to the RAG system
3. The RAG system's ANSWER (which should cite chunks using (source_id, chunk_id) format)

Score the answer on two dimensions using the rubric below.

## Groundedness (1-4)
How well is the answer supported by the retrieved chunks?
- 4: Every claim is directly supported by retrieved chunk content. Uncertainty is stated when evidence is weak or absent.
- 3: Most claims are supported. Minor unsupported nuance or slight extrapolation beyond chunk content.
- 2: Some claims are supported, but key claims lack grounding or are extrapolated significantly.
- 1: Major claims are hallucinated or contradicted by the retrieved chunks.

## Citation Correctness (1-4)
Do the citations accurately point to chunks that support the associated claims?
- 4: All citations use correct (source_id, chunk_id) format AND each cited chunk actually supports the claim it's attached to.
- 3: Most citations are correct. Minor issues: a citation is slightly off-target, or one claim is missing a citation.
- 2: Multiple citation errors: wrong chunk_ids, citations that don't support their claims, or many uncited claims.
- 1: Citations are fabricated, use wrong format, or systematically fail to match claim content.

## Special cases
- If the answer correctly states that evidence is insufficient or not found in the corpus, and the retrieved chunks genuinely lack relevant content, score Groundedness as 4 (this is correct trust behavior).
- If the answer refuses to answer when evidence IS present in the chunks, score Groundedness as 1.

Respond with ONLY a JSON object in this exact format (no markdown, no backticks):
{
  "groundedness_score": <1-4>,
  "groundedness_rationale": "<1-2 sentence explanation>",
  "citation_score": <1-4>,
  "citation_rationale": "<1-2 sentence explanation>",
  "failure_tags": ["<tag1>", "<tag2>"]
}

Valid failure tags (use any that apply, or empty list if none):
- HALLUCINATED_CLAIM: answer contains claims not in the retrieved chunks
- FABRICATED_CITATION: citation points to a chunk that doesn't exist or doesn't support the claim
- MISSING_CITATION: a significant claim lacks any citation
- WRONG_FORMAT: citations don't use (source_id, chunk_id) format
- MISSED_EVIDENCE: retrieved chunks contain relevant info the answer ignores
- FALSE_REFUSAL: answer says evidence is missing when it's present in chunks
- OVER_EXTRAPOLATION: answer goes significantly beyond what chunks support
- CONTRADICTS_SOURCE: answer contradicts information in the retrieved chunks

---

QUERY:
%s

RETRIEVED CHUNKS:
%s

ANSWER:
%s
`

// completenessPromptTemplate is the second, independently-prompted
// judgment: coverage breadth against what the sent evidence could support,
// not the full corpus. Placeholders: query, chunk count, formatted chunks,
// answer.
const completenessPromptTemplate = `You are evaluating the COMPLETENESS of a RAG system's answer.

QUERY: %s

RETRIEVED CHUNKS SENT TO GENERATOR (top %d):
%s

SYSTEM'S ANSWER:
%s

COMPLETENESS RUBRIC (1-4):
- 4: Covers all aspects of the question using the full range of relevant retrieved evidence
- 3: Mostly complete; minor gaps in coverage or over-reliance on a single source when multiple relevant sources were available
- 2: Partial; misses a major aspect of the question or ignores clearly relevant retrieved chunks
- 1: Superficial or off-target despite relevant evidence being available

IMPORTANT SCORING RULES:
- Score based on what the RETRIEVED CHUNKS could support, not what the full corpus might contain.
- If the answer explicitly says "I cannot answer this" or "evidence is missing", check whether the retrieved chunks actually support a better answer. If they do, penalize. If they genuinely don't contain relevant info, a well-structured acknowledgment of limitations can still score 3-4.
- If the query asks about multiple aspects/sources and the answer only addresses some using a subset of relevant retrieved chunks, score 2-3.
- For out-of-scope queries where retrieved chunks are genuinely irrelevant, score based on how well the answer characterizes what the corpus does contain.

Respond with ONLY a JSON object (no markdown, no backticks):
{"completeness_score": <1-4>, "completeness_rationale": "<2-3 sentences>"}`
