package llm

// VisionExtractionPrompt asks a vision model for a verbatim transcription of the code in an image.
const VisionExtractionPrompt = `Please extract all the code text from this image. Focus on:
1. Extract ALL visible code text exactly as written
2. Preserve exact formatting, indentation, and line breaks
3. Include any syntax errors or typos as they appear
4. If there are multiple code blocks, extract them all
5. Return only the extracted code text, nothing else

Be very precise with the text extraction - every character matters for code analysis.`
