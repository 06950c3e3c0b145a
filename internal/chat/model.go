package chat

// Model IDs
//
// | Model Name              | API Model ID                 | Use Case                          |
// |-------------------------|------------------------------|-----------------------------------|
// | Imagen 4                | imagen-4.0-generate-001      | Text-to-image dish generation     |
// | Imagen 4 Fast           | imagen-4.0-fast-generate-001 | Cheaper, faster generation        |
// | Gemini 2.5 Flash Image  | gemini-2.5-flash-image       | Instruction-driven image editing  |
// | Gemini 2.5 Flash        | gemini-2.5-flash             | API key validation (text only)    |
const (
	// ModelImagen4 generates photos from a text prompt.
	ModelImagen4 = "imagen-4.0-generate-001"

	// ModelImagen4Fast trades some fidelity for latency and cost.
	ModelImagen4Fast = "imagen-4.0-fast-generate-001"

	// ModelGemini25FlashImage edits an input image according to a text instruction.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini25Flash is a stable text model, used for cheap validation calls.
	ModelGemini25Flash = "gemini-2.5-flash"
)

// DefaultImageModel is the generation model unless overridden by configuration.
const DefaultImageModel = ModelImagen4

// DefaultEditModel is the editing model unless overridden by configuration.
const DefaultEditModel = ModelGemini25FlashImage
