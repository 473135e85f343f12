package reference

// 스타일 분석 지시문: 레이아웃/포즈/색/조명만 추출, 인물 외형은 금지
const styleInstruction = `You are a YouTube thumbnail layout analyst.
Study the thumbnails you are given and describe their FORMAT so a designer could rebuild the same layout with different people.

Describe only:
- composition: layout type, how many people, where they stand, how large they appear, what fills each background zone
- pose format: for each person slot, the position, body pose, type of facial expression and eye direction
- text elements: position, font style, size, color and effects (never transcribe the words)
- graphic elements: arrows, circles, emojis, screenshots and where they sit
- colors: primary, secondary, accent, background, text colors
- lighting style and overall mood

Never describe who the people are. Do not mention skin, hair, age, ethnicity, facial features, names or any resemblance to real people.
Refer to people only as [PRIMARY_PERSON] and [SECONDARY_PERSON_1], [SECONDARY_PERSON_2] and so on.

Answer with a single JSON object of this shape:
{
  "composition": {
    "layout_type": "single | split | group | reaction | before_after",
    "person_count": 1,
    "person_positions": ["left 35%"],
    "person_size": "fraction of frame height",
    "background_zones": "what fills the rest of the frame"
  },
  "pose_format": {
    "primary_person": {"position": "", "pose": "", "expression_type": "", "eye_direction": ""},
    "secondary_people": [{"position": "", "pose": "", "expression_type": ""}]
  },
  "text_elements": [{"position": "", "font_style": "", "font_size": "", "color": "", "effects": ""}],
  "graphic_elements": [{"type": "", "content": "", "position": "", "size": ""}],
  "colors": {"primary": "", "secondary": "", "accent": "", "background": "", "text_colors": []},
  "lighting_style": "",
  "mood": "",
  "format_prompt": "one paragraph recreating this layout with [PRIMARY_PERSON] placeholders"
}`

const styleRequest = "Analyze the layout format of these thumbnails and answer with the JSON object only."

// 얼굴 분석 지시문: 사진별로 외형을 서술, 1번은 항상 PRIMARY
const faceInstruction = `You describe people from face photos so an image model can draw each of them consistently.
You receive several photos, each preceded by a label "PERSON n (ROLE)". PERSON 1 is always the PRIMARY person, the rest are SECONDARY.

For every photo write one description covering face shape, skin tone, hair, facial hair, eyes, distinctive features and apparent age range.
Keep each person separate. Never merge two photos into one description and never skip a photo.

Answer with a single JSON object:
{
  "faces": [
    {"index": 1, "role": "primary", "description": "..."},
    {"index": 2, "role": "secondary", "description": "..."}
  ],
  "combined_description": "one sentence naming how many people appear"
}`

const faceRequest = "Describe each labelled person and answer with the JSON object only. Return exactly one entry per photo."
