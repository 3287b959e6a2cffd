package mcp

const serverInstructions = `Magnets over MCP. Every tool call is forwarded to the game's REST API.

Walk the player (P) onto the goal (G). Magnets (M) slide after every turn,
pulled and pushed by the polarized faces around them.

Start with create_session, read game_instructions once, then play with move
or bulk_move. game_state and describe_cell show the board; solve finds a
winning path when you are stuck. The intent argument of the move tools is for
your own reasoning and is never sent anywhere.`

const gameInstructions = `🧲 Magnets - Complete Instructions

GAME OBJECTIVE:
Walk the player (P) onto the goal (G) in as few turns as you can.

THE BOARD:
A tile is drawn as 3x3 characters. The centre says what the tile is and the
four edge characters are the forces on its faces:

     +         up face
    -M_        left face, centre, right face
     0         down face

TILE LEGEND:
• P - Player (you)
• M - Magnet, slides when forces act on it
• W - Wall, never moves, may carry polarized faces
• X - Unpathable, blocks everything and has no faces
• _ - Empty floor
• G - Goal, empty floor marked in its centre

FACE LEGEND:
• + - Positive
• - - Negative
• _ - Passthrough: no force of its own, lets force from beyond reach through
• 0 or blank - Blocking: no force, and stops force from beyond

TURN ORDER:
1. You step one tile up, right, down or left onto empty floor, or wait
2. The magnets settle once. Each magnet feels the faces turned towards it
   along its row and column and moves at most one tile
3. Opposite polarities attract and equal polarities repel
4. A magnet only moves into empty floor. The player is never pushed

MOVEMENT COMMANDS:
- up, right, down, left: one step
- wait: let the magnets settle without stepping (still a turn)
- bulk moves play a list of turns and stop at the first rejected one
- pass reset to start the level over first

VICTORY CONDITIONS:
- Stand on the goal
- The board shows "🎉 LEVEL COMPLETE" when you arrive
- Further moves are rejected until you reset

TIPS:
- describe_cell reads out a tile when a face is hard to make out
- Rejected moves are free; only accepted turns are counted
- solve tells you whether the level can be won and how

Good luck! 🧲`
